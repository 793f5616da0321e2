package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	repository "github.com/ds124wfegd/tickethub/internal/database/postgres"
	"github.com/ds124wfegd/tickethub/internal/entity"
	"github.com/ds124wfegd/tickethub/internal/monitoring"
	"github.com/ds124wfegd/tickethub/pkg/notifier"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const idempotencyKeyPrefix = "tickethub:idempotency:"

type reservationService struct {
	store      repository.Store
	regRepo    repository.RegistrationRepository
	ticketRepo repository.TicketRepository
	cache      *redis.Client
	notify     notifier.Notifier

	txRetries      int
	idempotencyTTL time.Duration
	maxQuantity    int
	now            func() time.Time
}

// NewReservationService создает новый экземпляр ReservationService
func NewReservationService(
	store repository.Store,
	regRepo repository.RegistrationRepository,
	ticketRepo repository.TicketRepository,
	cache *redis.Client,
	notify notifier.Notifier,
	txRetries int,
	idempotencyTTL time.Duration,
	maxQuantity int,
) ReservationService {
	if txRetries <= 0 {
		txRetries = 3
	}
	if maxQuantity <= 0 {
		maxQuantity = 50
	}
	if notify == nil {
		notify = notifier.NewNopNotifier()
	}
	return &reservationService{
		store:          store,
		regRepo:        regRepo,
		ticketRepo:     ticketRepo,
		cache:          cache,
		notify:         notify,
		txRetries:      txRetries,
		idempotencyTTL: idempotencyTTL,
		maxQuantity:    maxQuantity,
		now:            time.Now,
	}
}

// Purchase атомарно превращает запрос покупки в выпущенные билеты либо отказ.
// Повторный вызов с тем же ключом идемпотентности возвращает исходную
// регистрацию, не создавая новой.
func (s *reservationService) Purchase(ctx context.Context, req *PurchaseRequest) (*entity.Registration, error) {
	if err := validatePurchaseRequest(req, s.maxQuantity); err != nil {
		monitoring.RecordPurchase("rejected")
		return nil, err
	}

	// Быстрый путь: ключ идемпотентности уже обслужен
	if req.IdempotencyKey != "" {
		if existing, err := s.lookupByIdempotencyKey(ctx, req.IdempotencyKey); err == nil && existing != nil {
			return s.GetRegistration(ctx, existing.ID)
		}
	}

	// Предварительная проверка дубликата вне транзакции: дешёвый отказ
	// до захвата транзакции. Окончательная проверка повторяется внутри.
	if existing, err := s.regRepo.GetActiveByEventAndUser(ctx, req.EventID, req.UserID); err == nil && existing != nil {
		monitoring.RecordPurchase("already_registered")
		return nil, entity.ErrAlreadyRegistered
	}

	var registration *entity.Registration

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			reg, err := s.purchaseTx(ctx, tx, req)
			if err != nil {
				return err
			}
			registration = reg
			return nil
		})
	})
	if err != nil {
		monitoring.RecordPurchase(purchaseOutcome(err))
		return nil, err
	}

	s.afterPurchase(ctx, req, registration)

	monitoring.RecordPurchase("success")
	monitoring.RecordTicketsIssued(req.EventID, len(registration.Tickets))
	return registration, nil
}

// purchaseTx выполняет все проверки и записи одной покупки внутри транзакции
func (s *reservationService) purchaseTx(ctx context.Context, tx repository.Tx, req *PurchaseRequest) (*entity.Registration, error) {
	now := s.now()

	event, err := tx.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	exists, err := tx.HasActiveRegistration(ctx, req.EventID, req.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, entity.ErrAlreadyRegistered
	}

	// Количество по типам с учётом повторяющихся позиций
	perType := make(map[int64]int)
	totalQuantity := 0
	for _, item := range req.Items {
		perType[item.TicketTypeID] += item.Quantity
		totalQuantity += item.Quantity
	}

	if event.RemainingCapacity() < totalQuantity {
		return nil, entity.ErrCapacityExceeded
	}

	var discount *entity.DiscountCode
	if req.DiscountCode != "" {
		discount, err = tx.GetDiscountByCode(ctx, req.EventID, req.DiscountCode)
		if err != nil {
			return nil, err
		}
		if err := discount.Usable(now); err != nil {
			return nil, err
		}
	}

	types := make(map[int64]*entity.TicketType, len(perType))
	for typeID, quantity := range perType {
		tt, err := tx.GetTicketType(ctx, typeID)
		if err != nil {
			return nil, err
		}
		if tt.EventID != req.EventID {
			return nil, entity.ErrTicketTypeNotFound
		}
		if !tt.WithinSaleWindow(now) {
			return nil, entity.ErrSaleWindowClosed
		}
		if quantity > tt.MaxPerPerson {
			return nil, entity.ErrPerPersonLimit
		}
		if tt.Remaining() < quantity {
			return nil, entity.ErrCapacityExceeded
		}
		types[typeID] = tt
	}

	registration := &entity.Registration{
		ID:             uuid.New().String(),
		EventID:        req.EventID,
		UserID:         req.UserID,
		Currency:       firstCurrency(types),
		Status:         entity.RegistrationStatusActive,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}

	total := decimal.Zero
	discountApplied := false
	for typeID, quantity := range perType {
		tt := types[typeID]

		price := tt.Price
		if discount != nil && discount.AppliesTo(typeID) {
			price = discount.Apply(tt.Price)
			discountApplied = true
		}

		for i := 0; i < quantity; i++ {
			ticket := &entity.Ticket{
				ID:             uuid.New().String(),
				EventID:        req.EventID,
				TicketTypeID:   typeID,
				RegistrationID: registration.ID,
				OwnerID:        req.UserID,
				Status:         entity.TicketStatusConfirmed,
				PurchasePrice:  price,
				Currency:       tt.Currency,
				PurchasedAt:    now,
				Transferable:   true,
				UpdatedAt:      now,
			}
			if err := tx.InsertTicket(ctx, ticket); err != nil {
				return nil, err
			}
			registration.Tickets = append(registration.Tickets, ticket)
			total = total.Add(price)
		}

		if err := tx.AddSoldCount(ctx, typeID, quantity); err != nil {
			return nil, err
		}
	}

	// Списание использования кода в той же транзакции: неуспешная покупка
	// никогда не расходует использование
	if discount != nil && discountApplied {
		if err := tx.RedeemDiscount(ctx, discount.ID); err != nil {
			return nil, err
		}
	}

	registration.TotalAmount = total
	if err := tx.InsertRegistration(ctx, registration); err != nil {
		return nil, err
	}

	if err := tx.AddRegisteredCount(ctx, req.EventID, totalQuantity); err != nil {
		return nil, err
	}

	// Покупка уведомлённого из листа ожидания закрывает его запись
	entry, err := tx.GetActiveWaitlistEntry(ctx, req.EventID, req.UserID)
	if err != nil && !errors.Is(err, entity.ErrWaitlistEntryNotFound) {
		return nil, err
	}
	if entry != nil {
		entry.Status = entity.WaitlistStatusConverted
		if err := tx.UpdateWaitlistEntry(ctx, entry); err != nil {
			return nil, err
		}
	}

	return registration, nil
}

// afterPurchase выполняет побочные эффекты успешной покупки вне транзакции
func (s *reservationService) afterPurchase(ctx context.Context, req *PurchaseRequest, registration *entity.Registration) {
	if req.IdempotencyKey != "" && s.cache != nil {
		key := idempotencyKeyPrefix + req.IdempotencyKey
		if err := s.cache.Set(ctx, key, registration.ID, s.idempotencyTTL).Err(); err != nil {
			log.Printf("Failed to cache idempotency key: %v", err)
		}
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event := &entity.NotificationEvent{
			Kind:    entity.NotificationPurchaseConfirmed,
			UserID:  registration.UserID,
			EventID: registration.EventID,
			Payload: map[string]any{
				"registration_id": registration.ID,
				"tickets":         len(registration.Tickets),
				"total_amount":    registration.TotalAmount.String(),
			},
			CreatedAt: s.now(),
		}
		if err := s.notify.Emit(notifyCtx, event); err != nil {
			log.Printf("Failed to emit purchase notification: %v", err)
		}
	}()
}

// GetRegistration возвращает регистрацию вместе с её билетами
func (s *reservationService) GetRegistration(ctx context.Context, id string) (*entity.Registration, error) {
	registration, err := s.regRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.GetByRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	registration.Tickets = tickets

	return registration, nil
}

// lookupByIdempotencyKey ищет уже обслуженный ключ: сначала в кэше, затем в базе
func (s *reservationService) lookupByIdempotencyKey(ctx context.Context, key string) (*entity.Registration, error) {
	if s.cache != nil {
		if regID, err := s.cache.Get(ctx, idempotencyKeyPrefix+key).Result(); err == nil && regID != "" {
			if reg, err := s.regRepo.GetByID(ctx, regID); err == nil {
				return reg, nil
			}
		}
	}

	return s.regRepo.GetByIdempotencyKey(ctx, key)
}

// withRetry повторяет fn при конфликте сериализации, не более txRetries попыток
func (s *reservationService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.txRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, entity.ErrTxConflict) {
			return err
		}

		monitoring.RecordTxRetry()
		log.Printf("Transaction conflict (attempt %d/%d), retrying", attempt, s.txRetries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

func validatePurchaseRequest(req *PurchaseRequest, maxQuantity int) error {
	if req.EventID <= 0 || req.UserID == "" {
		return fmt.Errorf("%w: event and user are required", entity.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: purchase must contain at least one item", entity.ErrInvalidInput)
	}

	total := 0
	for _, item := range req.Items {
		if item.TicketTypeID <= 0 || item.Quantity <= 0 {
			return fmt.Errorf("%w: each item needs a ticket type and a positive quantity", entity.ErrInvalidInput)
		}
		total += item.Quantity
	}
	if total > maxQuantity {
		return fmt.Errorf("%w: at most %d tickets per purchase", entity.ErrInvalidInput, maxQuantity)
	}
	return nil
}

func firstCurrency(types map[int64]*entity.TicketType) string {
	for _, tt := range types {
		return tt.Currency
	}
	return "USD"
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, entity.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, entity.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, entity.ErrSaleWindowClosed):
		return "sale_window_closed"
	case errors.Is(err, entity.ErrPerPersonLimit):
		return "per_person_limit"
	case errors.Is(err, entity.ErrDiscountInvalid), errors.Is(err, entity.ErrDiscountExhausted):
		return "discount_rejected"
	case errors.Is(err, entity.ErrTxConflict):
		return "conflict"
	default:
		return "error"
	}
}
