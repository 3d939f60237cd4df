// session — клиентский доступ к access token: session-токен из URL после
// OAuth-раунда хранится долговременно, access token — только в памяти
// процесса и получается обменом через бэкенд не чаще одного раза.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

const (
	// DefaultParam — имя query-параметра, в котором бэкенд возвращает session-токен.
	DefaultParam = "session"
	// DefaultExchangeTimeout — предел общего на всех ожидающих обмена.
	DefaultExchangeTimeout = 15 * time.Second
)

// Accessor реализует discussion.TokenSource.
type Accessor struct {
	host      string
	param     string
	durable   Store
	exchanger Exchanger
	timeout   time.Duration

	mu    sync.Mutex
	token string
	gen   uint64 // растёт при SignOut и смене сессии

	sf singleflight.Group
}

// Option настраивает Accessor.
type Option func(*Accessor)

// WithParam задаёт имя query-параметра сессии.
func WithParam(name string) Option {
	return func(a *Accessor) {
		if name != "" {
			a.param = name
		}
	}
}

// WithExchangeTimeout задаёт предел обмена session -> access token.
func WithExchangeTimeout(d time.Duration) Option {
	return func(a *Accessor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// New — host — origin бэкенда (для LoginURL).
func New(host string, durable Store, exchanger Exchanger, opts ...Option) *Accessor {
	a := &Accessor{
		host:      strings.TrimSuffix(host, "/"),
		param:     DefaultParam,
		durable:   durable,
		exchanger: exchanger,
		timeout:   DefaultExchangeTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Capture сохраняет session-токен из URL страницы и возвращает URL без него.
// Если параметра нет, URL возвращается как есть.
func (a *Accessor) Capture(ctx context.Context, page *url.URL) (*url.URL, error) {
	const op = "session/Capture"

	if page == nil {
		return nil, nil
	}

	q := page.Query()
	session := q.Get(a.param)
	if session == "" {
		return page, nil
	}

	if err := a.durable.Save(ctx, session); err != nil {
		return page, fmt.Errorf("%s: %w", op, err)
	}

	a.mu.Lock()
	a.token = ""
	a.gen++
	a.mu.Unlock()

	clean := *page
	q.Del(a.param)
	clean.RawQuery = q.Encode()

	log.From(ctx).Debug("session_captured", "op", op)

	return &clean, nil
}

// Token возвращает access token или "" для анонима.
//
// Порядок: кэш в памяти -> session из Store -> один обмен (конкурентные
// вызовы ждут общий результат). Отказ обмена по токену удаляет session и
// даёт "" без ошибки; сетевые сбои возвращаются как ошибка, session остаётся.
// Если за время обмена пришла новая сессия, обмен повторяется с ней один раз.
func (a *Accessor) Token(ctx context.Context) (string, error) {
	const op = "session/Token"

	for attempt := 0; attempt < 2; attempt++ {
		a.mu.Lock()
		if a.token != "" {
			t := a.token
			a.mu.Unlock()
			return t, nil
		}
		gen := a.gen
		a.mu.Unlock()

		session, ok, err := a.durable.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return "", nil
		}

		token, err := a.exchange(ctx, session)
		if err != nil {
			if errors.Is(err, models.ErrToken) {
				log.From(ctx).Info("session_rejected", "op", op)
				a.discard(ctx, session)
				return "", nil
			}

			return "", fmt.Errorf("%s: %w", op, err)
		}

		a.mu.Lock()
		if a.gen == gen {
			a.token = token
			a.mu.Unlock()
			return token, nil
		}
		a.mu.Unlock()

		// Пока шёл обмен, был SignOut или пришла новая сессия.
		log.From(ctx).Debug("session_changed_during_exchange", "op", op)
	}

	return "", nil
}

// exchange — общий на всех ожидающих обмен session. Он не зависит от
// отмены контекста первого вызывающего; каждый ждёт результат до своей отмены.
func (a *Accessor) exchange(ctx context.Context, session string) (string, error) {
	ch := a.sf.DoChan(session, func() (any, error) {
		xctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		return a.exchanger.Exchange(xctx, session)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// SignOut безусловно очищает оба кэша.
func (a *Accessor) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.token = ""
	a.gen++
	a.mu.Unlock()

	if err := a.durable.Clear(ctx); err != nil {
		return fmt.Errorf("session/SignOut: %w", err)
	}

	return nil
}

// LoginURL — адрес начала OAuth-раунда с возвратом на redirectURI.
func (a *Accessor) LoginURL(redirectURI string) string {
	return a.host + "/api/oauth/authorize?" + url.Values{"redirect_uri": {redirectURI}}.Encode()
}

// discard удаляет session, только если в Store всё ещё она.
func (a *Accessor) discard(ctx context.Context, session string) {
	cur, ok, err := a.durable.Load(ctx)
	if err != nil || !ok || cur != session {
		return
	}

	if err := a.durable.Clear(ctx); err != nil {
		log.From(ctx).Warn("session_clear_failed", "err", err.Error())
	}
}
