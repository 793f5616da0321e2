package entity

import (
	"time"
)

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusNotified  WaitlistStatus = "notified"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusConverted WaitlistStatus = "converted"
)

// IsActive сообщает, удерживает ли запись претензию на будущее место
func (s WaitlistStatus) IsActive() bool {
	return s == WaitlistStatusWaiting || s == WaitlistStatusNotified
}

// WaitlistEntry — претензия пользователя на будущее освободившееся место.
// Позиции монотонно возрастают в рамках мероприятия и не перенумеровываются
// при выходе из очереди: это полный порядок, а не плотный индекс.
type WaitlistEntry struct {
	ID         string         `json:"id" db:"id"`
	EventID    int64          `json:"event_id" db:"event_id"`
	UserID     string         `json:"user_id" db:"user_id"`
	Position   int64          `json:"position" db:"position"`
	Status     WaitlistStatus `json:"status" db:"status"`
	JoinedAt   time.Time      `json:"joined_at" db:"joined_at"`
	NotifiedAt *time.Time     `json:"notified_at,omitempty" db:"notified_at"`
}

// HoldExpired проверяет, истёк ли дедлайн удержания предложенного места
func (e *WaitlistEntry) HoldExpired(now time.Time, holdTTL time.Duration) bool {
	if e.Status != WaitlistStatusNotified || e.NotifiedAt == nil {
		return false
	}
	return now.After(e.NotifiedAt.Add(holdTTL))
}
