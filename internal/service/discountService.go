package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/tickethub/internal/database/postgres"
	"github.com/ds124wfegd/tickethub/internal/entity"

	"github.com/shopspring/decimal"
)

type discountService struct {
	discountRepo repository.DiscountRepository
	eventRepo    repository.EventRepository
	now          func() time.Time
}

// NewDiscountService создает новый экземпляр DiscountService
func NewDiscountService(discountRepo repository.DiscountRepository, eventRepo repository.EventRepository) DiscountService {
	return &discountService{
		discountRepo: discountRepo,
		eventRepo:    eventRepo,
		now:          time.Now,
	}
}

// CreateDiscount создает скидочный код для мероприятия
func (s *discountService) CreateDiscount(ctx context.Context, req *CreateDiscountRequest) (*entity.DiscountCode, error) {
	if _, err := s.eventRepo.GetByID(ctx, req.EventID); err != nil {
		return nil, err
	}

	discountType := entity.DiscountType(req.Type)
	switch discountType {
	case entity.DiscountTypePercentage:
		if req.Value.IsNegative() || req.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%w: percentage must be between 0 and 100", entity.ErrInvalidInput)
		}
	case entity.DiscountTypeFixed:
		if req.Value.IsNegative() {
			return nil, fmt.Errorf("%w: fixed discount cannot be negative", entity.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", entity.ErrInvalidInput, req.Type)
	}

	if !req.ValidTo.After(req.ValidFrom.Time) {
		return nil, fmt.Errorf("%w: validity window end must be after start", entity.ErrInvalidInput)
	}

	code := &entity.DiscountCode{
		EventID:       req.EventID,
		Code:          entity.NormalizeDiscountCode(req.Code),
		Type:          discountType,
		Value:         req.Value,
		MaxUses:       req.MaxUses,
		ValidFrom:     req.ValidFrom.Time,
		ValidTo:       req.ValidTo.Time,
		TicketTypeIDs: req.TicketTypeIDs,
		Active:        true,
	}

	if code.Code == "" {
		return nil, fmt.Errorf("%w: discount code cannot be empty", entity.ErrInvalidInput)
	}

	if err := s.discountRepo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to create discount code: %w", err)
	}

	return code, nil
}

// ValidateDiscount проверяет код без списания и возвращает цену со скидкой
func (s *discountService) ValidateDiscount(ctx context.Context, req *ValidateDiscountRequest) (*DiscountQuote, error) {
	code, err := s.discountRepo.GetByCode(ctx, req.EventID, req.Code)
	if err != nil {
		return nil, err
	}

	if err := code.Usable(s.now()); err != nil {
		return nil, err
	}
	if !code.AppliesTo(req.TicketTypeID) {
		return nil, entity.ErrDiscountInvalid
	}

	tt, err := s.eventRepo.GetTicketType(ctx, req.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if tt.EventID != req.EventID {
		return nil, entity.ErrTicketTypeNotFound
	}

	return &DiscountQuote{
		Code:            code.Code,
		OriginalPrice:   tt.Price,
		DiscountedPrice: code.Apply(tt.Price),
		RemainingUses:   code.MaxUses - code.CurrentUses,
	}, nil
}
