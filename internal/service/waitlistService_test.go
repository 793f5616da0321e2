package service

import (
	"context"
	"testing"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWaitlistEvent(store *fakeStore) {
	store.addEvent(&entity.Event{
		ID:              1,
		Title:           "Go Conference",
		TotalCapacity:   2,
		RegisteredCount: 2,
	})
}

func newTestWaitlistService(store *fakeStore, publisher *fakePublisher, notify *fakeNotifier) WaitlistService {
	return NewWaitlistService(store, &fakeWaitlistRepo{store: store}, publisher, notify, time.Minute, 3)
}

// TestWaitlistJoin тестирует постановку в очередь в порядке прихода
func TestWaitlistJoin(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	first, err := svc.Join(context.Background(), &JoinWaitlistRequest{EventID: 1, UserID: "user-1"})
	require.NoError(t, err)
	second, err := svc.Join(context.Background(), &JoinWaitlistRequest{EventID: 1, UserID: "user-2"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Position)
	assert.Equal(t, int64(2), second.Position)
	assert.Equal(t, entity.WaitlistStatusWaiting, first.Status)
}

// TestWaitlistJoinDuplicate тестирует запрет второй активной записи
func TestWaitlistJoinDuplicate(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	_, err := svc.Join(context.Background(), &JoinWaitlistRequest{EventID: 1, UserID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), &JoinWaitlistRequest{EventID: 1, UserID: "user-1"})
	assert.ErrorIs(t, err, entity.ErrAlreadyWaiting)
}

// TestWaitlistJoinUnknownEvent тестирует отказ для несуществующего мероприятия
func TestWaitlistJoinUnknownEvent(t *testing.T) {
	svc := newTestWaitlistService(newFakeStore(), &fakePublisher{}, &fakeNotifier{})

	_, err := svc.Join(context.Background(), &JoinWaitlistRequest{EventID: 404, UserID: "user-1"})
	assert.ErrorIs(t, err, entity.ErrEventNotFound)
}

// TestWaitlistLeave тестирует выход из очереди и идемпотентность повтора
func TestWaitlistLeave(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	entry, err := svc.Join(context.Background(), &JoinWaitlistRequest{EventID: 1, UserID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), entry.ID, "user-1"))
	assert.Equal(t, entity.WaitlistStatusExpired, store.getEntry(entry.ID).Status)

	// повторный выход — no-op
	require.NoError(t, svc.Leave(context.Background(), entry.ID, "user-1"))

	// чужая запись неотличима от несуществующей
	err = svc.Leave(context.Background(), entry.ID, "intruder")
	assert.ErrorIs(t, err, entity.ErrWaitlistEntryNotFound)
}

// TestAdmitNext тестирует выдачу мест: первые по позиции помечаются
// notified, ставится отложенная задача на дедлайн удержания
func TestAdmitNext(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)
	for i, user := range []string{"user-1", "user-2", "user-3"} {
		store.addEntry(&entity.WaitlistEntry{
			ID:       user + "-entry",
			EventID:  1,
			UserID:   user,
			Position: int64(i + 1),
			Status:   entity.WaitlistStatusWaiting,
		})
	}

	publisher := &fakePublisher{}
	notify := &fakeNotifier{}
	svc := newTestWaitlistService(store, publisher, notify)

	admitted, err := svc.AdmitNext(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, admitted, 2)

	assert.Equal(t, "user-1", admitted[0].UserID)
	assert.Equal(t, "user-2", admitted[1].UserID)
	for _, entry := range admitted {
		assert.Equal(t, entity.WaitlistStatusNotified, entry.Status)
		require.NotNil(t, entry.NotifiedAt)
	}
	assert.Equal(t, entity.WaitlistStatusWaiting, store.getEntry("user-3-entry").Status)

	tasks := publisher.published()
	require.Len(t, tasks, 2)
	for i, task := range tasks {
		assert.Equal(t, TaskTypeExpireHold, task.Type)
		assert.Equal(t, admitted[i].ID, task.Data["entry_id"])
		assert.Equal(t, admitted[i].NotifiedAt.Add(time.Minute), task.ExecuteAt)
	}

	assert.Eventually(t, func() bool {
		return len(notify.kinds()) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestAdmitNextFewerWaiting тестирует выдачу при нехватке ожидающих
func TestAdmitNextFewerWaiting(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)
	store.addEntry(&entity.WaitlistEntry{
		ID:       "entry-1",
		EventID:  1,
		UserID:   "user-1",
		Position: 1,
		Status:   entity.WaitlistStatusWaiting,
	})

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	admitted, err := svc.AdmitNext(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Len(t, admitted, 1)

	admitted, err = svc.AdmitNext(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, admitted)
}

// TestExpireHold тестирует снятие просроченного удержания: запись
// уходит в хвост очереди, место предлагается следующему
func TestExpireHold(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)
	notifiedAt := time.Now().Add(-2 * time.Minute)
	store.addEntry(&entity.WaitlistEntry{
		ID:         "entry-1",
		EventID:    1,
		UserID:     "user-1",
		Position:   1,
		Status:     entity.WaitlistStatusNotified,
		NotifiedAt: &notifiedAt,
	})
	store.addEntry(&entity.WaitlistEntry{
		ID:       "entry-2",
		EventID:  1,
		UserID:   "user-2",
		Position: 2,
		Status:   entity.WaitlistStatusWaiting,
	})

	publisher := &fakePublisher{}
	svc := newTestWaitlistService(store, publisher, &fakeNotifier{})

	require.NoError(t, svc.ExpireHold(context.Background(), "entry-1"))

	expired := store.getEntry("entry-1")
	assert.Equal(t, entity.WaitlistStatusWaiting, expired.Status)
	assert.Equal(t, int64(3), expired.Position)
	assert.Nil(t, expired.NotifiedAt)

	next := store.getEntry("entry-2")
	assert.Equal(t, entity.WaitlistStatusNotified, next.Status)

	tasks := publisher.published()
	require.Len(t, tasks, 1)
	assert.Equal(t, "entry-2", tasks[0].Data["entry_id"])
}

// TestExpireHoldBeforeDeadline тестирует, что действующее удержание
// не трогается
func TestExpireHoldBeforeDeadline(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)
	notifiedAt := time.Now()
	store.addEntry(&entity.WaitlistEntry{
		ID:         "entry-1",
		EventID:    1,
		UserID:     "user-1",
		Position:   1,
		Status:     entity.WaitlistStatusNotified,
		NotifiedAt: &notifiedAt,
	})

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	require.NoError(t, svc.ExpireHold(context.Background(), "entry-1"))
	assert.Equal(t, entity.WaitlistStatusNotified, store.getEntry("entry-1").Status)
}

// TestExpireHoldConverted тестирует no-op для записи, закрытой покупкой
func TestExpireHoldConverted(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)
	store.addEntry(&entity.WaitlistEntry{
		ID:       "entry-1",
		EventID:  1,
		UserID:   "user-1",
		Position: 1,
		Status:   entity.WaitlistStatusConverted,
	})

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	require.NoError(t, svc.ExpireHold(context.Background(), "entry-1"))
	assert.Equal(t, entity.WaitlistStatusConverted, store.getEntry("entry-1").Status)
}

// TestSweepExpiredHolds тестирует страховочную зачистку просроченных
// удержаний по нескольким мероприятиям
func TestSweepExpiredHolds(t *testing.T) {
	store := newFakeStore()
	seedWaitlistEvent(store)
	store.addEvent(&entity.Event{ID: 2, Title: "Meetup", TotalCapacity: 1, RegisteredCount: 1})

	stale := time.Now().Add(-2 * time.Minute)
	fresh := time.Now()
	store.addEntry(&entity.WaitlistEntry{
		ID: "stale-1", EventID: 1, UserID: "user-1", Position: 1,
		Status: entity.WaitlistStatusNotified, NotifiedAt: &stale,
	})
	store.addEntry(&entity.WaitlistEntry{
		ID: "next-1", EventID: 1, UserID: "user-2", Position: 2,
		Status: entity.WaitlistStatusWaiting,
	})
	store.addEntry(&entity.WaitlistEntry{
		ID: "fresh-1", EventID: 1, UserID: "user-3", Position: 3,
		Status: entity.WaitlistStatusNotified, NotifiedAt: &fresh,
	})
	store.addEntry(&entity.WaitlistEntry{
		ID: "stale-2", EventID: 2, UserID: "user-4", Position: 1,
		Status: entity.WaitlistStatusNotified, NotifiedAt: &stale,
	})

	svc := newTestWaitlistService(store, &fakePublisher{}, &fakeNotifier{})

	total, err := svc.SweepExpiredHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// освободившееся место ушло следующему ожидающему, просроченный — в хвост
	assert.Equal(t, entity.WaitlistStatusNotified, store.getEntry("next-1").Status)
	requeued := store.getEntry("stale-1")
	assert.Equal(t, entity.WaitlistStatusWaiting, requeued.Status)
	assert.Equal(t, int64(4), requeued.Position)

	// действующее удержание не тронуто
	assert.Equal(t, entity.WaitlistStatusNotified, store.getEntry("fresh-1").Status)

	// единственный в очереди получает место заново
	renotified := store.getEntry("stale-2")
	assert.Equal(t, entity.WaitlistStatusNotified, renotified.Status)
	require.NotNil(t, renotified.NotifiedAt)
	assert.True(t, renotified.NotifiedAt.After(stale))
}
