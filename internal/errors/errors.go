// errors стандартизирует ответы об ошибках HTTP-слоя agora.
// На вход он принимает ошибку доменного слоя (sentinel из internal/models,
// обёрнутый через %w), а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Детали (op, ответ апстрима) остаются в логах. Если хендлеру нужно
// показать клиенту конкретную причину, он оборачивает ошибку через Public.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/agora/internal/models"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для виджета.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// publicError несёт сообщение, которое можно отдать клиенту как есть.
type publicError struct {
	msg string
	err error
}

func (e *publicError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *publicError) Unwrap() error { return e.err }

// Public помечает err безопасным сообщением msg; статус по-прежнему
// определяется sentinel-ошибкой внутри err.
func Public(err error, msg string) error {
	if err == nil {
		return nil
	}

	return &publicError{msg: msg, err: err}
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - известный sentinel или ошибка контекста - по таблице base();
//   - прочее - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error: APIError{
				Code:    "internal",
				Message: "internal error",
			},
		}
	}

	httpStatus, code, msg := base(err)

	var pe *publicError
	if errors.As(err, &pe) {
		msg = pe.msg
	}

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// base — маппинг доменных ошибок -> HTTP/код/сообщение:
//   - ErrValidation -> 400
//   - ErrToken (битый/истёкший state, session) -> 400
//   - ErrAuthenticationRequired -> 401
//   - ErrNotFound -> 404
//   - ErrRateLimited -> 429
//   - ErrConfiguration (нет секрета) -> 500
//   - context.Canceled -> 499
//   - context.DeadlineExceeded -> 504
//   - ErrUpstream -> 502 (после контекстных: оборванный вызов апстрима не 502)
//   - прочее -> 500/internal
func base(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, models.ErrToken):
		return http.StatusBadRequest, "invalid_token", "invalid or expired token"
	case errors.Is(err, models.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "unauthenticated", "authentication required"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, "resource_exhausted", "too many requests"
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusInternalServerError, "misconfigured", "server misconfigured"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, "upstream", "upstream failure"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
