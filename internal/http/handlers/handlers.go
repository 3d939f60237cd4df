package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/internal/oauth"
)

// Reader — чтения обсуждений с серверным токеном (discussion.Direct или
// кэширующая обёртка над ним).
type Reader interface {
	Discussion(ctx context.Context, p discussion.GetDiscussionParams) (*models.DiscussionResult, error)
	Categories(ctx context.Context, repo string) (*models.CategoryResult, error)
}

// OAuth — трёхшаговый раунд входа (*oauth.Service).
type OAuth interface {
	AuthorizeURL(ctx context.Context, redirectURI, callbackURL string) (string, error)
	Callback(ctx context.Context, code, state, callbackURL string) (string, error)
	ExchangeSession(ctx context.Context, session string) (string, error)
}

// Handlers агрегирует зависимости хендлеров.
// Reader == nil означает, что серверный токен не настроен: чтения отвечают 500.
type Handlers struct {
	Reader Reader
	OAuth  OAuth
	// PublicURL — внешний origin бэкенда; пустой — берётся из запроса.
	PublicURL string
}

func New(reader Reader, auth OAuth, publicURL string) *Handlers {
	return &Handlers{Reader: reader, OAuth: auth, PublicURL: strings.TrimSuffix(publicURL, "/")}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeJSON — тело запроса не больше 64 KiB, лишние поля игнорируются.
func decodeJSON(r *http.Request, value any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10)).Decode(value)
}

// invalid — локальная ошибка разбора запроса.
func invalid(op, msg string) error {
	return fmt.Errorf("%s: %s: %w", op, msg, models.ErrValidation)
}

// callbackURL — адрес колбэка, который провайдер вызовет после входа.
func (h *Handlers) callbackURL(r *http.Request) string {
	if h.PublicURL != "" {
		return h.PublicURL + oauth.CallbackPath
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}

	return scheme + "://" + r.Host + oauth.CallbackPath
}
