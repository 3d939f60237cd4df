// engine — движок синхронизации обсуждения на клиенте.
//
// Держит текущий снимок обсуждения по ключу (repo, term|number, order),
// перезагружает его при смене ключа и применяет мутации оптимистично:
// локальный снимок меняется до ответа сервера. Снимки неизменяемы и
// заменяются целиком под мьютексом; сетевые вызовы идут вне мьютекса.
// Ответы загрузок, которые уже устарели (сменился ключ или начата новая
// загрузка), отбрасываются.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// DefaultPageSize — размер страницы комментариев.
const DefaultPageSize = 20

// ErrSuperseded — ответ загрузки отброшен: за время запроса сменился ключ
// или началась более новая загрузка.
var ErrSuperseded = errors.New("engine: superseded by a newer load")

// Config — параметры виджета, неизменные на время жизни движка.
type Config struct {
	// RepositoryID, CategoryID — node id для создания обсуждения.
	RepositoryID string
	CategoryID   string
	// Category — имя категории для поиска.
	Category string
	Strict   bool
	PageSize int
}

// Engine безопасен для конкурентного использования.
type Engine struct {
	provider discussion.Provider
	cfg      Config

	mu        sync.Mutex
	snap      *Snapshot
	gen       uint64 // номер последней начатой загрузки
	seq       uint64 // номер последнего снимка
	listeners map[int]func(*Snapshot)
	nextID    int

	notifyMu  sync.Mutex
	delivered uint64
}

// New — движок без ключа; первая загрузка — Load.
func New(p discussion.Provider, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return &Engine{
		provider:  p,
		cfg:       cfg,
		snap:      &Snapshot{},
		listeners: make(map[int]func(*Snapshot)),
	}
}

// Snapshot — текущий снимок.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snap
}

// Subscribe регистрирует обработчик, который вызывается после каждой замены
// снимка (в порядке замен, устаревшие снимки пропускаются). Возвращает отписку.
// Обработчик не должен синхронно вызывать мутирующие методы движка.
func (e *Engine) Subscribe(fn func(*Snapshot)) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Load переключает движок на key и загружает обсуждение. Тот же ключ,
// который уже загружен или грузится, — no-op.
func (e *Engine) Load(ctx context.Context, key Key) (*Snapshot, error) {
	if key.Order == "" {
		key.Order = OrderOldest
	}

	e.mu.Lock()
	if e.snap.Key == key && (e.snap.Loaded || e.snap.Loading) {
		s := e.snap
		e.mu.Unlock()
		return s, nil
	}

	e.gen++
	gen := e.gen
	e.swapLocked(&Snapshot{Key: key, Loading: true})
	e.mu.Unlock()

	e.flush()

	return e.fetch(ctx, key, gen)
}

// Refetch перезагружает текущий ключ; пока идёт загрузка, старое обсуждение
// остаётся в снимке.
func (e *Engine) Refetch(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	key := e.snap.Key
	if key.Repo == "" {
		s := e.snap
		e.mu.Unlock()
		return s, nil
	}

	e.gen++
	gen := e.gen
	next := *e.snap
	next.Loading = true
	e.swapLocked(&next)
	e.mu.Unlock()

	e.flush()

	return e.fetch(ctx, key, gen)
}

func (e *Engine) fetch(ctx context.Context, key Key, gen uint64) (*Snapshot, error) {
	const op = "engine/fetch"

	lg := log.From(ctx).With("op", op, "repo", key.Repo, "term", key.Term, "number", key.Number)

	res, err := e.provider.GetDiscussion(ctx, e.params(key))

	e.mu.Lock()
	if gen != e.gen {
		s := e.snap
		e.mu.Unlock()
		lg.Debug("load_superseded")
		return s, ErrSuperseded
	}

	next := &Snapshot{Key: key, Loaded: true}
	if err != nil {
		next.Viewer = e.snap.Viewer
		next.Discussion = e.snap.Discussion
		next.Err = err
	} else {
		next.Viewer = res.Viewer
		next.Discussion = res.Discussion
	}
	e.swapLocked(next)
	e.mu.Unlock()

	e.flush()

	if err != nil {
		lg.Warn("load_failed", "err", err.Error())
		return next, fmt.Errorf("%s: %w", op, err)
	}

	return next, nil
}

// LoadMore догружает следующую страницу (after=endCursor) и дописывает её
// в конец. Без следующей страницы — no-op.
func (e *Engine) LoadMore(ctx context.Context) (*Snapshot, error) {
	const op = "engine/LoadMore"

	e.mu.Lock()
	cur := e.snap
	gen := e.gen
	e.mu.Unlock()

	if !cur.HasMore() || cur.Discussion.PageInfo.EndCursor == nil {
		return cur, nil
	}

	p := e.params(cur.Key)
	p.First, p.Last, p.Before = e.cfg.PageSize, 0, ""
	p.After = *cur.Discussion.PageInfo.EndCursor

	res, err := e.provider.GetDiscussion(ctx, p)
	if err != nil {
		return cur, fmt.Errorf("%s: %w", op, err)
	}

	e.mu.Lock()
	if gen != e.gen || e.snap.Discussion == nil || res.Discussion == nil || e.snap.Discussion.ID != res.Discussion.ID {
		s := e.snap
		e.mu.Unlock()
		return s, ErrSuperseded
	}

	next := *e.snap
	next.Discussion = appendPage(e.snap.Discussion, res.Discussion)
	e.swapLocked(&next)
	e.mu.Unlock()

	e.flush()

	return &next, nil
}

func (e *Engine) params(key Key) discussion.GetDiscussionParams {
	p := discussion.GetDiscussionParams{
		Repo:     key.Repo,
		Term:     key.Term,
		Number:   key.Number,
		Category: e.cfg.Category,
		Strict:   e.cfg.Strict,
	}

	if key.Order == OrderNewest {
		p.Last = e.cfg.PageSize
	} else {
		p.First = e.cfg.PageSize
	}

	return p
}

// mutate применяет fn к обсуждению текущего снимка. Пустой id — любое
// текущее обсуждение. fn возвращает nil, если менять нечего.
func (e *Engine) mutate(id string, fn func(*models.Discussion) *models.Discussion) bool {
	e.mu.Lock()
	d := e.snap.Discussion
	if d == nil || (id != "" && d.ID != id) {
		e.mu.Unlock()
		return false
	}

	nd := fn(d)
	if nd == nil {
		e.mu.Unlock()
		return false
	}

	next := *e.snap
	next.Discussion = nd
	e.swapLocked(&next)
	e.mu.Unlock()

	e.flush()

	return true
}

// swapLocked заменяет снимок; вызывать под e.mu.
func (e *Engine) swapLocked(s *Snapshot) {
	e.seq++
	s.seq = e.seq
	e.snap = s
}

// flush доставляет текущий снимок подписчикам, если он ещё не доставлен.
func (e *Engine) flush() {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	s := e.snap
	fns := make([]func(*Snapshot), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	if s.seq <= e.delivered {
		return
	}
	e.delivered = s.seq

	for _, fn := range fns {
		fn(s)
	}
}
