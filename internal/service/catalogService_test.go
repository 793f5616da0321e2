package service

import (
	"context"
	"testing"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customTime(t time.Time) entity.CustomTime {
	return entity.CustomTime{Time: t}
}

// TestCreateEvent тестирует создание мероприятия и валидацию входа
func TestCreateEvent(t *testing.T) {
	store := newFakeStore()
	svc := NewCatalogService(&fakeEventRepo{store: store})

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:         "Go Conference",
		Venue:         "Moscow",
		StartsAt:      customTime(time.Now().Add(30 * 24 * time.Hour)),
		TotalCapacity: 500,
	})
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.Equal(t, 500, event.TotalCapacity)
	assert.Equal(t, 0, event.RegisteredCount)

	_, err = svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:         "No capacity",
		StartsAt:      customTime(time.Now().Add(time.Hour)),
		TotalCapacity: 0,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:         "In the past",
		StartsAt:      customTime(time.Now().Add(-time.Hour)),
		TotalCapacity: 10,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

// TestCreateTicketType тестирует создание типа билета с дефолтами
func TestCreateTicketType(t *testing.T) {
	store := newFakeStore()
	repo := &fakeEventRepo{store: store}
	svc := NewCatalogService(repo)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:         "Go Conference",
		StartsAt:      customTime(time.Now().Add(30 * 24 * time.Hour)),
		TotalCapacity: 500,
	})
	require.NoError(t, err)

	tt, err := svc.CreateTicketType(context.Background(), &CreateTicketTypeRequest{
		EventID:        event.ID,
		Name:           "Standard",
		Price:          decimal.RequireFromString("49.90"),
		TotalAvailable: 300,
		SaleStart:      customTime(time.Now()),
		SaleEnd:        customTime(time.Now().Add(24 * time.Hour)),
	})
	require.NoError(t, err)
	assert.NotZero(t, tt.ID)
	assert.Equal(t, "USD", tt.Currency)
	assert.Equal(t, 1, tt.MaxPerPerson)
}

// TestCreateTicketTypeRejections тестирует отказы создания типа билета
func TestCreateTicketTypeRejections(t *testing.T) {
	store := newFakeStore()
	repo := &fakeEventRepo{store: store}
	svc := NewCatalogService(repo)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:         "Go Conference",
		StartsAt:      customTime(time.Now().Add(30 * 24 * time.Hour)),
		TotalCapacity: 500,
	})
	require.NoError(t, err)

	_, err = svc.CreateTicketType(context.Background(), &CreateTicketTypeRequest{
		EventID:        404,
		Name:           "Orphan",
		Price:          decimal.RequireFromString("10"),
		TotalAvailable: 10,
		SaleStart:      customTime(time.Now()),
		SaleEnd:        customTime(time.Now().Add(time.Hour)),
	})
	assert.ErrorIs(t, err, entity.ErrEventNotFound)

	_, err = svc.CreateTicketType(context.Background(), &CreateTicketTypeRequest{
		EventID:        event.ID,
		Name:           "Negative",
		Price:          decimal.RequireFromString("-1"),
		TotalAvailable: 10,
		SaleStart:      customTime(time.Now()),
		SaleEnd:        customTime(time.Now().Add(time.Hour)),
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.CreateTicketType(context.Background(), &CreateTicketTypeRequest{
		EventID:        event.ID,
		Name:           "Inverted window",
		Price:          decimal.RequireFromString("10"),
		TotalAvailable: 10,
		SaleStart:      customTime(time.Now().Add(time.Hour)),
		SaleEnd:        customTime(time.Now()),
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

// TestListTicketTypes тестирует выборку типов в рамках мероприятия
func TestListTicketTypes(t *testing.T) {
	store := newFakeStore()
	repo := &fakeEventRepo{store: store}
	svc := NewCatalogService(repo)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:         "Go Conference",
		StartsAt:      customTime(time.Now().Add(30 * 24 * time.Hour)),
		TotalCapacity: 500,
	})
	require.NoError(t, err)

	for _, name := range []string{"Standard", "VIP"} {
		_, err = svc.CreateTicketType(context.Background(), &CreateTicketTypeRequest{
			EventID:        event.ID,
			Name:           name,
			Price:          decimal.RequireFromString("49.90"),
			TotalAvailable: 50,
			SaleStart:      customTime(time.Now()),
			SaleEnd:        customTime(time.Now().Add(24 * time.Hour)),
		})
		require.NoError(t, err)
	}

	types, err := svc.ListTicketTypes(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Standard", types[0].Name)
	assert.Equal(t, "VIP", types[1].Name)

	_, err = svc.ListTicketTypes(context.Background(), 404)
	assert.ErrorIs(t, err, entity.ErrEventNotFound)
}

// TestGetEventStats тестирует сводку доступности
func TestGetEventStats(t *testing.T) {
	store := newFakeStore()
	store.addEvent(&entity.Event{ID: 1, Title: "Go Conference", TotalCapacity: 10, RegisteredCount: 4})
	store.addType(&entity.TicketType{
		ID: 10, EventID: 1, Name: "Standard",
		Price: decimal.RequireFromString("25.00"), Currency: "USD",
		TotalAvailable: 10, Sold: 4,
		SaleStart: time.Now().Add(-time.Hour), SaleEnd: time.Now().Add(time.Hour),
	})
	store.addTicket(&entity.Ticket{ID: "t1", EventID: 1, TicketTypeID: 10, Status: entity.TicketStatusConfirmed})
	store.addTicket(&entity.Ticket{ID: "t2", EventID: 1, TicketTypeID: 10, Status: entity.TicketStatusCheckedIn})
	store.addEntry(&entity.WaitlistEntry{ID: "w1", EventID: 1, UserID: "u", Position: 1, Status: entity.WaitlistStatusWaiting})

	svc := NewCatalogService(&fakeEventRepo{store: store})

	stats, err := svc.GetEventStats(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Event.RegisteredCount)
	require.Len(t, stats.Types, 1)
	assert.Equal(t, 6, stats.Types[0].Remaining)
	assert.True(t, stats.Types[0].WithinSaleWindow)
	assert.Equal(t, 1, stats.TicketsByStatus[entity.TicketStatusConfirmed])
	assert.Equal(t, 1, stats.TicketsByStatus[entity.TicketStatusCheckedIn])
	assert.Equal(t, 1, stats.WaitlistDepth)
	assert.InDelta(t, 0.4, stats.UtilizationRate(), 1e-9)
}
