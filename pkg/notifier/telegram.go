package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

// TelegramNotifier дублирует уведомления в операторский чат.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org/bot" + token,
	}
}

func (t *TelegramNotifier) Emit(ctx context.Context, event *entity.NotificationEvent) error {
	text := formatMessage(event)

	endpoint := t.baseURL + "/sendMessage"

	params := url.Values{}
	params.Add("chat_id", t.chatID)
	params.Add("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}

func (t *TelegramNotifier) Close() error {
	return nil
}

func formatMessage(event *entity.NotificationEvent) string {
	switch event.Kind {
	case entity.NotificationPurchaseConfirmed:
		return fmt.Sprintf("Покупка подтверждена: пользователь %s, событие %d", event.UserID, event.EventID)
	case entity.NotificationTicketCancelled:
		return fmt.Sprintf("Билет отменён: пользователь %s, событие %d", event.UserID, event.EventID)
	case entity.NotificationRefundRequested:
		return fmt.Sprintf("Запрошен возврат: пользователь %s, событие %d", event.UserID, event.EventID)
	case entity.NotificationRefundCompleted:
		return fmt.Sprintf("Возврат выполнен: пользователь %s, событие %d", event.UserID, event.EventID)
	case entity.NotificationTicketTransferred:
		return fmt.Sprintf("Билет передан: новый владелец %s, событие %d", event.UserID, event.EventID)
	case entity.NotificationSpotAvailable:
		return fmt.Sprintf("Место освободилось: пользователь %s, событие %d", event.UserID, event.EventID)
	default:
		return fmt.Sprintf("Уведомление %s: пользователь %s, событие %d", event.Kind, event.UserID, event.EventID)
	}
}
