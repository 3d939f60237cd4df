package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/agora/internal/errors"
	logctx "github.com/pribylovaa/agora/pkg/log"
)

// Timeout ограничивает запрос дедлайном d, если у контекста его ещё нет.
// Если хендлер вернулся по истёкшему дедлайну, ничего не записав, клиент
// получает 504 в общем формате ошибок. d <= 0 выключает мидлвар.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := newStatusWriter(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(sw, r)

			if sw.status != 0 || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logctx.From(ctx).Warn("request_timed_out", "path", r.URL.Path, "timeout", d.String())
			apierrors.WriteError(sw, r, ctx.Err())
		})
	}
}
