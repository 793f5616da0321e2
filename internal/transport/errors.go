package transport

import (
	"errors"
	"net/http"

	"github.com/ds124wfegd/tickethub/internal/entity"

	"github.com/gin-gonic/gin"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// respondError переводит доменную ошибку в HTTP-статус.
// 404 — сущность не найдена; 409 — конфликт состояния, повтор возможен
// после изменения условий; 422 — бизнес-правило отклонило корректный
// запрос; 400 — некорректный запрос; остальное — 500.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), ErrorResponse{Success: false, Error: err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrTicketTypeNotFound),
		errors.Is(err, entity.ErrTicketNotFound),
		errors.Is(err, entity.ErrRegistrationNotFound),
		errors.Is(err, entity.ErrWaitlistEntryNotFound):
		return http.StatusNotFound

	case errors.Is(err, entity.ErrAlreadyRegistered),
		errors.Is(err, entity.ErrCapacityExceeded),
		errors.Is(err, entity.ErrTxConflict),
		errors.Is(err, entity.ErrAlreadyExists),
		errors.Is(err, entity.ErrAlreadyCheckedIn),
		errors.Is(err, entity.ErrInvalidStateTransition),
		errors.Is(err, entity.ErrAlreadyWaiting),
		errors.Is(err, entity.ErrDiscountExhausted):
		return http.StatusConflict

	case errors.Is(err, entity.ErrSaleWindowClosed),
		errors.Is(err, entity.ErrPerPersonLimit),
		errors.Is(err, entity.ErrDiscountInvalid),
		errors.Is(err, entity.ErrNotTransferable),
		errors.Is(err, entity.ErrNotTicketOwner):
		return http.StatusUnprocessableEntity

	case errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
