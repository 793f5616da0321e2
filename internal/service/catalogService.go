package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/tickethub/internal/database/postgres"
	"github.com/ds124wfegd/tickethub/internal/entity"
	"github.com/ds124wfegd/tickethub/internal/monitoring"
)

type catalogService struct {
	eventRepo repository.EventRepository
}

// NewCatalogService создает новый экземпляр CatalogService
func NewCatalogService(eventRepo repository.EventRepository) CatalogService {
	return &catalogService{
		eventRepo: eventRepo,
	}
}

// CreateEvent создает новое мероприятие
func (s *catalogService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	if req.TotalCapacity <= 0 {
		return nil, fmt.Errorf("%w: total capacity must be positive", entity.ErrInvalidInput)
	}
	if req.StartsAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: event start must be in the future", entity.ErrInvalidInput)
	}

	event := &entity.Event{
		Title:         req.Title,
		Venue:         req.Venue,
		StartsAt:      req.StartsAt.Time,
		TotalCapacity: req.TotalCapacity,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// GetEvent возвращает мероприятие по идентификатору
func (s *catalogService) GetEvent(ctx context.Context, id int64) (*entity.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

// CreateTicketType создает тип билета в рамках мероприятия
func (s *catalogService) CreateTicketType(ctx context.Context, req *CreateTicketTypeRequest) (*entity.TicketType, error) {
	if _, err := s.eventRepo.GetByID(ctx, req.EventID); err != nil {
		return nil, err
	}

	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", entity.ErrInvalidInput)
	}
	if !req.SaleEnd.After(req.SaleStart.Time) {
		return nil, fmt.Errorf("%w: sale window end must be after start", entity.ErrInvalidInput)
	}

	tt := &entity.TicketType{
		EventID:        req.EventID,
		Name:           req.Name,
		Price:          req.Price,
		Currency:       req.Currency,
		TotalAvailable: req.TotalAvailable,
		MaxPerPerson:   req.MaxPerPerson,
		SaleStart:      req.SaleStart.Time,
		SaleEnd:        req.SaleEnd.Time,
	}
	if tt.Currency == "" {
		tt.Currency = "USD"
	}
	if tt.MaxPerPerson <= 0 {
		tt.MaxPerPerson = 1
	}

	if err := s.eventRepo.CreateTicketType(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	return tt, nil
}

// GetTicketType возвращает тип билета по идентификатору
func (s *catalogService) GetTicketType(ctx context.Context, id int64) (*entity.TicketType, error) {
	return s.eventRepo.GetTicketType(ctx, id)
}

// ListTicketTypes возвращает все типы билетов мероприятия
func (s *catalogService) ListTicketTypes(ctx context.Context, eventID int64) ([]*entity.TicketType, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.eventRepo.ListTicketTypes(ctx, eventID)
}

// GetEventStats возвращает сводку доступности по мероприятию
func (s *catalogService) GetEventStats(ctx context.Context, eventID int64) (*entity.EventStats, error) {
	stats, err := s.eventRepo.GetStats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	monitoring.SetWaitlistDepth(eventID, int64(stats.WaitlistDepth))
	return stats, nil
}
