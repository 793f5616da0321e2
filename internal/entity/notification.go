package entity

import (
	"time"
)

// Виды исходящих уведомлений
const (
	NotificationPurchaseConfirmed = "purchase_confirmed"
	NotificationTicketCancelled   = "ticket_cancelled"
	NotificationRefundRequested   = "refund_requested"
	NotificationRefundCompleted   = "refund_completed"
	NotificationTicketTransferred = "ticket_transferred"
	NotificationSpotAvailable     = "waitlist_spot_available"
)

// NotificationEvent — запись, передаваемая внешнему коллаборатору доставки.
// Неудача доставки никогда не откатывает транзакцию ядра.
type NotificationEvent struct {
	Kind      string         `json:"kind"`
	UserID    string         `json:"user_id"`
	EventID   int64          `json:"event_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
