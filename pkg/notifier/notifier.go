// Пакет notifier отвечает за доставку доменных уведомлений
// во внешние каналы (шина сообщений, telegram-чат операторов).
package notifier

import (
	"context"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

// Notifier публикует доменные уведомления. Доставка выполняется
// после фиксации транзакции и не влияет на результат операции.
type Notifier interface {
	Emit(ctx context.Context, event *entity.NotificationEvent) error
	Close() error
}

// NopNotifier отбрасывает уведомления; используется, когда ни один
// канал доставки не сконфигурирован, и в тестах.
type NopNotifier struct{}

func NewNopNotifier() *NopNotifier {
	return &NopNotifier{}
}

func (n *NopNotifier) Emit(ctx context.Context, event *entity.NotificationEvent) error {
	return nil
}

func (n *NopNotifier) Close() error {
	return nil
}
