// oauth — трёхшаговый OAuth-раунд без серверного хранилища:
//
//  1. Authorize: return URL запечатывается в state-токен (5 минут) и
//     пользователь уходит на страницу авторизации провайдера;
//  2. Callback: state расшифровывается ДО обращения к провайдеру, код
//     меняется на access token, который запечатывается в session-токен (1 год)
//     и возвращается на return URL query-параметром;
//  3. ExchangeSession: session-токен меняется на access token.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/pribylovaa/agora/internal/metrics"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/internal/tokens"
	"github.com/pribylovaa/agora/pkg/log"
	"github.com/pribylovaa/agora/pkg/redact"
)

const (
	DefaultStateTTL     = 5 * time.Minute
	DefaultSessionTTL   = 365 * 24 * time.Hour
	DefaultSessionParam = "session"
	// CallbackPath — путь колбэка относительно публичного origin-а бэкенда.
	CallbackPath = "/api/oauth/callback"
)

// Config — неизменяемая конфигурация раунда. Пустые секреты допустимы
// на старте: соответствующие операции вернут models.ErrConfiguration.
type Config struct {
	ClientID         string
	ClientSecret     string
	EncryptionSecret string
	StateTTL         time.Duration
	SessionTTL       time.Duration
	SessionParam     string
	Endpoint         oauth2.Endpoint
	Scopes           []string
	// AllowedOrigins — если не пуст, return URL обязан иметь один из этих origin-ов.
	AllowedOrigins []string
}

// Service реализует три шага раунда. Безопасен для конкурентного использования.
type Service struct {
	cfg   Config
	codec *tokens.Codec
	hc    *http.Client
	now   func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithHTTPClient задаёт клиент для обмена кода на токен.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) { s.hc = hc }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New применяет значения по умолчанию и выводит ключ шифрования.
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SessionParam == "" {
		cfg.SessionParam = DefaultSessionParam
	}
	if cfg.Endpoint.AuthURL == "" || cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = oauthgithub.Endpoint
	}

	s := &Service{cfg: cfg, hc: http.DefaultClient, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.EncryptionSecret != "" {
		codec, err := tokens.New(cfg.EncryptionSecret, tokens.WithClock(s.now))
		if err != nil {
			return nil, fmt.Errorf("oauth: %w", err)
		}
		s.codec = codec
	}

	return s, nil
}

// SessionParam — имя query-параметра с session-токеном на return URL.
func (s *Service) SessionParam() string { return s.cfg.SessionParam }

func (s *Service) oauthConfig(callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint:     s.cfg.Endpoint,
		RedirectURL:  callbackURL,
		Scopes:       s.cfg.Scopes,
	}
}

// AuthorizeURL — шаг 1. Возвращает адрес авторизации провайдера со state,
// в котором запечатан redirectURI.
func (s *Service) AuthorizeURL(ctx context.Context, redirectURI, callbackURL string) (string, error) {
	const op = "oauth/AuthorizeURL"

	lg := log.From(ctx).With("op", op)

	if redirectURI == "" {
		lg.Warn("invalid argument: empty redirect_uri")
		return "", fmt.Errorf("%s: redirect_uri is required: %w", op, models.ErrValidation)
	}

	if err := s.checkReturnURL(redirectURI); err != nil {
		lg.Warn("invalid argument: redirect_uri rejected", "redirect_uri", redact.URL(redirectURI, s.cfg.SessionParam))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.codec == nil || s.cfg.ClientID == "" {
		lg.Error("server misconfigured: client id or encryption secret missing")
		return "", fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	state, err := s.codec.Encode(redirectURI, s.now().Add(s.cfg.StateTTL))
	if err != nil {
		return "", fmt.Errorf("%s: encode state: %w", op, err)
	}

	return s.oauthConfig(callbackURL).AuthCodeURL(state), nil
}

// Callback — шаг 2. Возвращает return URL с session-токеном.
func (s *Service) Callback(ctx context.Context, code, state, callbackURL string) (string, error) {
	const op = "oauth/Callback"

	lg := log.From(ctx).With("op", op)

	if code == "" || state == "" {
		lg.Warn("invalid argument: missing code or state")
		return "", fmt.Errorf("%s: code and state are required: %w", op, models.ErrValidation)
	}

	if s.codec == nil || s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		lg.Error("server misconfigured: client credentials or encryption secret missing")
		return "", fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	returnURL, err := s.codec.Decode(state)
	if err != nil {
		reason := tokens.Reason(err)
		metrics.TokenRejections.WithLabelValues("state", reason).Inc()
		lg.Warn("state_rejected", "reason", reason)
		return "", fmt.Errorf("%s: invalid or expired state: %w", op, err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.hc)
	tok, err := s.oauthConfig(callbackURL).Exchange(ctx, code)
	if err != nil {
		lg.Error("code_exchange_failed", "err", err.Error())
		return "", fmt.Errorf("%s: token exchange: %w: %w", op, models.ErrUpstream, err)
	}

	if tok.AccessToken == "" {
		lg.Error("code_exchange_failed", "err", "missing access_token")
		return "", fmt.Errorf("%s: missing access token: %w", op, models.ErrUpstream)
	}

	session, err := s.codec.Encode(tok.AccessToken, s.now().Add(s.cfg.SessionTTL))
	if err != nil {
		return "", fmt.Errorf("%s: encode session: %w", op, err)
	}

	u, err := url.Parse(returnURL)
	if err != nil {
		// state подписан нами, сюда попадает только то, что прошло AuthorizeURL
		return "", fmt.Errorf("%s: return url: %w", op, models.ErrValidation)
	}

	q := u.Query()
	q.Set(s.cfg.SessionParam, session)
	u.RawQuery = q.Encode()

	lg.Info("oauth_completed", "return_url", redact.URL(u.String(), s.cfg.SessionParam))

	return u.String(), nil
}

// ExchangeSession — шаг 3. Возвращает access token.
func (s *Service) ExchangeSession(ctx context.Context, session string) (string, error) {
	const op = "oauth/ExchangeSession"

	lg := log.From(ctx).With("op", op)

	if session == "" {
		lg.Warn("invalid argument: empty session")
		return "", fmt.Errorf("%s: session is required: %w", op, models.ErrValidation)
	}

	if s.codec == nil {
		lg.Error("server misconfigured: encryption secret missing")
		return "", fmt.Errorf("%s: %w", op, models.ErrConfiguration)
	}

	token, err := s.codec.Decode(session)
	if err != nil {
		reason := tokens.Reason(err)
		metrics.TokenRejections.WithLabelValues("session", reason).Inc()
		lg.Info("session_rejected", "reason", reason)
		return "", fmt.Errorf("%s: invalid or expired session: %w", op, err)
	}

	return token, nil
}

// checkReturnURL — абсолютный http(s) URL и, если задан список, разрешённый origin.
func (s *Service) checkReturnURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("redirect_uri must be an absolute http(s) URL: %w", models.ErrValidation)
	}

	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return nil
	}

	origin := strings.ToLower(u.Scheme + "://" + u.Host)
	if !slices.ContainsFunc(s.cfg.AllowedOrigins, func(o string) bool {
		return strings.EqualFold(strings.TrimSuffix(o, "/"), origin)
	}) {
		return fmt.Errorf("redirect_uri origin %q is not allowed: %w", origin, models.ErrValidation)
	}

	return nil
}
