package service

import (
	"context"
	"sort"
	"sync"
	"time"

	repository "github.com/ds124wfegd/tickethub/internal/database/postgres"
	"github.com/ds124wfegd/tickethub/internal/entity"
)

// fakeStore — потранзакционное хранилище в памяти. Мьютекс сериализует
// транзакции, снимок перед fn и откат при ошибке дают семантику
// "всё или ничего". Поле conflicts впрыскивает ErrTxConflict для
// проверки повторов.
type fakeStore struct {
	mu sync.Mutex

	events        map[int64]*entity.Event
	types         map[int64]*entity.TicketType
	tickets       map[string]*entity.Ticket
	registrations map[string]*entity.Registration
	waitlist      map[string]*entity.WaitlistEntry
	discounts     map[int64]*entity.DiscountCode

	conflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:        make(map[int64]*entity.Event),
		types:         make(map[int64]*entity.TicketType),
		tickets:       make(map[string]*entity.Ticket),
		registrations: make(map[string]*entity.Registration),
		waitlist:      make(map[string]*entity.WaitlistEntry),
		discounts:     make(map[int64]*entity.DiscountCode),
	}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return entity.ErrTxConflict
	}

	snapshot := s.snapshot()
	if err := fn(&fakeTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeSnapshot struct {
	events        map[int64]*entity.Event
	types         map[int64]*entity.TicketType
	tickets       map[string]*entity.Ticket
	registrations map[string]*entity.Registration
	waitlist      map[string]*entity.WaitlistEntry
	discounts     map[int64]*entity.DiscountCode
}

func (s *fakeStore) snapshot() *storeSnapshot {
	snap := &storeSnapshot{
		events:        make(map[int64]*entity.Event, len(s.events)),
		types:         make(map[int64]*entity.TicketType, len(s.types)),
		tickets:       make(map[string]*entity.Ticket, len(s.tickets)),
		registrations: make(map[string]*entity.Registration, len(s.registrations)),
		waitlist:      make(map[string]*entity.WaitlistEntry, len(s.waitlist)),
		discounts:     make(map[int64]*entity.DiscountCode, len(s.discounts)),
	}
	for k, v := range s.events {
		snap.events[k] = copyEvent(v)
	}
	for k, v := range s.types {
		snap.types[k] = copyType(v)
	}
	for k, v := range s.tickets {
		snap.tickets[k] = copyTicket(v)
	}
	for k, v := range s.registrations {
		snap.registrations[k] = copyRegistration(v)
	}
	for k, v := range s.waitlist {
		snap.waitlist[k] = copyEntry(v)
	}
	for k, v := range s.discounts {
		snap.discounts[k] = copyDiscount(v)
	}
	return snap
}

func (s *fakeStore) restore(snap *storeSnapshot) {
	s.events = snap.events
	s.types = snap.types
	s.tickets = snap.tickets
	s.registrations = snap.registrations
	s.waitlist = snap.waitlist
	s.discounts = snap.discounts
}

// seed helpers run outside of transactions

func (s *fakeStore) addEvent(e *entity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = copyEvent(e)
}

func (s *fakeStore) addType(tt *entity.TicketType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[tt.ID] = copyType(tt)
}

func (s *fakeStore) addDiscount(d *entity.DiscountCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts[d.ID] = copyDiscount(d)
}

func (s *fakeStore) addTicket(t *entity.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = copyTicket(t)
}

func (s *fakeStore) addRegistration(r *entity.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[r.ID] = copyRegistration(r)
}

func (s *fakeStore) addEntry(e *entity.WaitlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitlist[e.ID] = copyEntry(e)
}

func (s *fakeStore) getEvent(id int64) *entity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEvent(s.events[id])
}

func (s *fakeStore) getType(id int64) *entity.TicketType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyType(s.types[id])
}

func (s *fakeStore) getDiscount(id int64) *entity.DiscountCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDiscount(s.discounts[id])
}

func (s *fakeStore) getEntry(id string) *entity.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntry(s.waitlist[id])
}

func (s *fakeStore) getTicket(id string) *entity.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTicket(s.tickets[id])
}

func (s *fakeStore) getRegistration(id string) *entity.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRegistration(s.registrations[id])
}

// fakeTx реализует repository.Tx над картами fakeStore. Вызывается только
// под мьютексом хранилища.
type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetEvent(ctx context.Context, eventID int64) (*entity.Event, error) {
	e, ok := t.store.events[eventID]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (t *fakeTx) GetTicketType(ctx context.Context, typeID int64) (*entity.TicketType, error) {
	tt, ok := t.store.types[typeID]
	if !ok {
		return nil, entity.ErrTicketTypeNotFound
	}
	return copyType(tt), nil
}

func (t *fakeTx) AddRegisteredCount(ctx context.Context, eventID int64, delta int) error {
	e, ok := t.store.events[eventID]
	if !ok {
		return entity.ErrEventNotFound
	}
	next := e.RegisteredCount + delta
	if next < 0 || next > e.TotalCapacity {
		return entity.ErrCapacityExceeded
	}
	e.RegisteredCount = next
	return nil
}

func (t *fakeTx) AddCheckedInCount(ctx context.Context, eventID int64, delta int) error {
	e, ok := t.store.events[eventID]
	if !ok {
		return entity.ErrEventNotFound
	}
	e.CheckedInCount += delta
	return nil
}

func (t *fakeTx) AddSoldCount(ctx context.Context, typeID int64, delta int) error {
	tt, ok := t.store.types[typeID]
	if !ok {
		return entity.ErrTicketTypeNotFound
	}
	next := tt.Sold + delta
	if next < 0 || next > tt.TotalAvailable {
		return entity.ErrCapacityExceeded
	}
	tt.Sold = next
	return nil
}

func (t *fakeTx) HasActiveRegistration(ctx context.Context, eventID int64, userID string) (bool, error) {
	for _, r := range t.store.registrations {
		if r.EventID == eventID && r.UserID == userID && r.Status == entity.RegistrationStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) InsertRegistration(ctx context.Context, reg *entity.Registration) error {
	for _, r := range t.store.registrations {
		if reg.IdempotencyKey != "" && r.IdempotencyKey == reg.IdempotencyKey {
			return entity.ErrAlreadyExists
		}
		if r.EventID == reg.EventID && r.UserID == reg.UserID && r.Status == entity.RegistrationStatusActive {
			return entity.ErrAlreadyExists
		}
	}
	t.store.registrations[reg.ID] = copyRegistration(reg)
	return nil
}

func (t *fakeTx) UpdateRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) error {
	r, ok := t.store.registrations[id]
	if !ok {
		return entity.ErrRegistrationNotFound
	}
	r.Status = status
	return nil
}

func (t *fakeTx) InsertTicket(ctx context.Context, ticket *entity.Ticket) error {
	t.store.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (t *fakeTx) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	tk, ok := t.store.tickets[id]
	if !ok {
		return nil, entity.ErrTicketNotFound
	}
	return copyTicket(tk), nil
}

func (t *fakeTx) UpdateTicket(ctx context.Context, ticket *entity.Ticket) error {
	if _, ok := t.store.tickets[ticket.ID]; !ok {
		return entity.ErrTicketNotFound
	}
	t.store.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (t *fakeTx) CountOccupyingTickets(ctx context.Context, registrationID string) (int, error) {
	count := 0
	for _, tk := range t.store.tickets {
		if tk.RegistrationID == registrationID && tk.Status.Occupies() {
			count++
		}
	}
	return count, nil
}

func (t *fakeTx) GetDiscountByCode(ctx context.Context, eventID int64, code string) (*entity.DiscountCode, error) {
	normalized := entity.NormalizeDiscountCode(code)
	for _, d := range t.store.discounts {
		if d.EventID == eventID && d.Code == normalized {
			return copyDiscount(d), nil
		}
	}
	return nil, entity.ErrDiscountInvalid
}

func (t *fakeTx) RedeemDiscount(ctx context.Context, codeID int64) error {
	d, ok := t.store.discounts[codeID]
	if !ok {
		return entity.ErrDiscountInvalid
	}
	if d.CurrentUses >= d.MaxUses {
		return entity.ErrDiscountExhausted
	}
	d.CurrentUses++
	return nil
}

func (t *fakeTx) NextWaitlistPosition(ctx context.Context, eventID int64) (int64, error) {
	var max int64
	for _, e := range t.store.waitlist {
		if e.EventID == eventID && e.Position > max {
			max = e.Position
		}
	}
	return max + 1, nil
}

func (t *fakeTx) HasActiveWaitlistEntry(ctx context.Context, eventID int64, userID string) (bool, error) {
	for _, e := range t.store.waitlist {
		if e.EventID == eventID && e.UserID == userID && e.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) GetActiveWaitlistEntry(ctx context.Context, eventID int64, userID string) (*entity.WaitlistEntry, error) {
	for _, e := range t.store.waitlist {
		if e.EventID == eventID && e.UserID == userID && e.Status.IsActive() {
			return copyEntry(e), nil
		}
	}
	return nil, entity.ErrWaitlistEntryNotFound
}

func (t *fakeTx) InsertWaitlistEntry(ctx context.Context, entry *entity.WaitlistEntry) error {
	t.store.waitlist[entry.ID] = copyEntry(entry)
	return nil
}

func (t *fakeTx) GetWaitlistEntry(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	e, ok := t.store.waitlist[id]
	if !ok {
		return nil, entity.ErrWaitlistEntryNotFound
	}
	return copyEntry(e), nil
}

func (t *fakeTx) ListWaitingEntries(ctx context.Context, eventID int64, limit int) ([]*entity.WaitlistEntry, error) {
	var entries []*entity.WaitlistEntry
	for _, e := range t.store.waitlist {
		if e.EventID == eventID && e.Status == entity.WaitlistStatusWaiting {
			entries = append(entries, copyEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (t *fakeTx) ListExpiredHolds(ctx context.Context, notifiedBefore time.Time) ([]*entity.WaitlistEntry, error) {
	var entries []*entity.WaitlistEntry
	for _, e := range t.store.waitlist {
		if e.Status == entity.WaitlistStatusNotified && e.NotifiedAt != nil && e.NotifiedAt.Before(notifiedBefore) {
			entries = append(entries, copyEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return entries, nil
}

func (t *fakeTx) UpdateWaitlistEntry(ctx context.Context, entry *entity.WaitlistEntry) error {
	if _, ok := t.store.waitlist[entry.ID]; !ok {
		return entity.ErrWaitlistEntryNotFound
	}
	t.store.waitlist[entry.ID] = copyEntry(entry)
	return nil
}

// Read-only репозитории поверх того же хранилища

type fakeRegistrationRepo struct {
	store *fakeStore
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*entity.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.registrations[id]
	if !ok {
		return nil, entity.ErrRegistrationNotFound
	}
	return copyRegistration(reg), nil
}

func (r *fakeRegistrationRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.registrations {
		if reg.IdempotencyKey == key {
			return copyRegistration(reg), nil
		}
	}
	return nil, entity.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) GetActiveByEventAndUser(ctx context.Context, eventID int64, userID string) (*entity.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.registrations {
		if reg.EventID == eventID && reg.UserID == userID && reg.Status == entity.RegistrationStatusActive {
			return copyRegistration(reg), nil
		}
	}
	return nil, entity.ErrRegistrationNotFound
}

type fakeTicketRepo struct {
	store *fakeStore
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tk, ok := r.store.tickets[id]
	if !ok {
		return nil, entity.ErrTicketNotFound
	}
	return copyTicket(tk), nil
}

func (r *fakeTicketRepo) GetByUser(ctx context.Context, userID string) ([]*entity.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var tickets []*entity.Ticket
	for _, tk := range r.store.tickets {
		if tk.OwnerID == userID {
			tickets = append(tickets, copyTicket(tk))
		}
	}
	return tickets, nil
}

func (r *fakeTicketRepo) GetByEvent(ctx context.Context, eventID int64) ([]*entity.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var tickets []*entity.Ticket
	for _, tk := range r.store.tickets {
		if tk.EventID == eventID {
			tickets = append(tickets, copyTicket(tk))
		}
	}
	return tickets, nil
}

func (r *fakeTicketRepo) GetByRegistration(ctx context.Context, registrationID string) ([]*entity.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var tickets []*entity.Ticket
	for _, tk := range r.store.tickets {
		if tk.RegistrationID == registrationID {
			tickets = append(tickets, copyTicket(tk))
		}
	}
	return tickets, nil
}

type fakeWaitlistRepo struct {
	store *fakeStore
}

func (r *fakeWaitlistRepo) GetByID(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.waitlist[id]
	if !ok {
		return nil, entity.ErrWaitlistEntryNotFound
	}
	return copyEntry(e), nil
}

func (r *fakeWaitlistRepo) GetActiveByEventAndUser(ctx context.Context, eventID int64, userID string) (*entity.WaitlistEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.waitlist {
		if e.EventID == eventID && e.UserID == userID && e.Status.IsActive() {
			return copyEntry(e), nil
		}
	}
	return nil, entity.ErrWaitlistEntryNotFound
}

func (r *fakeWaitlistRepo) CountWaiting(ctx context.Context, eventID int64) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, e := range r.store.waitlist {
		if e.EventID == eventID && e.Status == entity.WaitlistStatusWaiting {
			count++
		}
	}
	return count, nil
}

type fakeEventRepo struct {
	store      *fakeStore
	nextID     int64
	nextTypeID int64
}

func (r *fakeEventRepo) Create(ctx context.Context, event *entity.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	r.store.events[event.ID] = copyEvent(event)
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (r *fakeEventRepo) CreateTicketType(ctx context.Context, tt *entity.TicketType) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.nextTypeID++
	tt.ID = r.nextTypeID
	r.store.types[tt.ID] = copyType(tt)
	return nil
}

func (r *fakeEventRepo) GetTicketType(ctx context.Context, id int64) (*entity.TicketType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tt, ok := r.store.types[id]
	if !ok {
		return nil, entity.ErrTicketTypeNotFound
	}
	return copyType(tt), nil
}

func (r *fakeEventRepo) ListTicketTypes(ctx context.Context, eventID int64) ([]*entity.TicketType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var types []*entity.TicketType
	for _, tt := range r.store.types {
		if tt.EventID == eventID {
			types = append(types, copyType(tt))
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types, nil
}

func (r *fakeEventRepo) GetStats(ctx context.Context, eventID int64) (*entity.EventStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.events[eventID]
	if !ok {
		return nil, entity.ErrEventNotFound
	}

	stats := &entity.EventStats{
		Event:           *copyEvent(e),
		TicketsByStatus: make(map[entity.TicketStatus]int),
	}
	now := time.Now()
	for _, tt := range r.store.types {
		if tt.EventID != eventID {
			continue
		}
		stats.Types = append(stats.Types, entity.TypeAvailability{
			TicketTypeID:     tt.ID,
			Name:             tt.Name,
			Price:            tt.Price,
			Currency:         tt.Currency,
			Remaining:        tt.Remaining(),
			WithinSaleWindow: tt.WithinSaleWindow(now),
		})
	}
	for _, tk := range r.store.tickets {
		if tk.EventID == eventID {
			stats.TicketsByStatus[tk.Status]++
		}
	}
	for _, entry := range r.store.waitlist {
		if entry.EventID == eventID && entry.Status == entity.WaitlistStatusWaiting {
			stats.WaitlistDepth++
		}
	}
	return stats, nil
}

type fakeDiscountRepo struct {
	store  *fakeStore
	nextID int64
}

func (r *fakeDiscountRepo) Create(ctx context.Context, code *entity.DiscountCode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, d := range r.store.discounts {
		if d.EventID == code.EventID && d.Code == code.Code {
			return entity.ErrAlreadyExists
		}
	}
	r.nextID++
	code.ID = r.nextID
	r.store.discounts[code.ID] = copyDiscount(code)
	return nil
}

func (r *fakeDiscountRepo) GetByCode(ctx context.Context, eventID int64, code string) (*entity.DiscountCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	normalized := entity.NormalizeDiscountCode(code)
	for _, d := range r.store.discounts {
		if d.EventID == eventID && d.Code == normalized {
			return copyDiscount(d), nil
		}
	}
	return nil, entity.ErrDiscountInvalid
}

// fakeNotifier записывает отправленные уведомления
type fakeNotifier struct {
	mu     sync.Mutex
	events []*entity.NotificationEvent
}

func (n *fakeNotifier) Emit(ctx context.Context, event *entity.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) Close() error { return nil }

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []string
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// fakePublisher записывает опубликованные задачи
type fakePublisher struct {
	mu    sync.Mutex
	tasks []*Task
}

func (p *fakePublisher) Publish(ctx context.Context, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePublisher) published() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Task(nil), p.tasks...)
}

// copy helpers

func copyEvent(e *entity.Event) *entity.Event {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func copyType(tt *entity.TicketType) *entity.TicketType {
	if tt == nil {
		return nil
	}
	c := *tt
	return &c
}

func copyTicket(t *entity.Ticket) *entity.Ticket {
	if t == nil {
		return nil
	}
	c := *t
	if t.CheckedInAt != nil {
		v := *t.CheckedInAt
		c.CheckedInAt = &v
	}
	if t.PreviousOwner != nil {
		v := *t.PreviousOwner
		c.PreviousOwner = &v
	}
	return &c
}

func copyRegistration(r *entity.Registration) *entity.Registration {
	if r == nil {
		return nil
	}
	c := *r
	c.Tickets = nil
	for _, tk := range r.Tickets {
		c.Tickets = append(c.Tickets, copyTicket(tk))
	}
	return &c
}

func copyEntry(e *entity.WaitlistEntry) *entity.WaitlistEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.NotifiedAt != nil {
		v := *e.NotifiedAt
		c.NotifiedAt = &v
	}
	return &c
}

func copyDiscount(d *entity.DiscountCode) *entity.DiscountCode {
	if d == nil {
		return nil
	}
	c := *d
	c.TicketTypeIDs = append([]int64(nil), d.TicketTypeIDs...)
	return &c
}
