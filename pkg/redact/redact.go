// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов: токены, OAuth-коды, state и session-параметры в URL.
// Цель — исключить утечки секретов, сохранив полезный для отладки контекст
// (хост, путь, имена параметров).
package redact

import (
	"net/url"
	"strings"
)

const placeholder = "[REDACTED]"

// SensitiveParams — query-параметры, значения которых никогда не пишутся в лог.
var SensitiveParams = []string{"code", "state", "session", "token", "access_token", "client_secret"}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Tail оставляет последние n символов секрета, остальное заменяет на "***".
// Короткие значения (<= 2n) скрываются полностью.
//
// Примеры:
//
//	Tail("ghp_abcdef123456", 4) -> "***3456"
//	Tail("abc", 4)              -> "***"
func Tail(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= 2*n {
		return "***"
	}

	return "***" + string(r[len(r)-n:])
}

// URL возвращает строковое представление URL, в котором значения
// чувствительных query-параметров (SensitiveParams плюс extra) заменены заглушкой.
// Некорректный URL редактируется полностью.
func URL(raw string, extra ...string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return placeholder
	}

	q := u.Query()
	if len(q) == 0 {
		return u.String()
	}

	for name := range q {
		if isSensitive(name, extra) {
			q.Set(name, placeholder)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func isSensitive(name string, extra []string) bool {
	for _, s := range SensitiveParams {
		if strings.EqualFold(name, s) {
			return true
		}
	}

	for _, s := range extra {
		if strings.EqualFold(name, s) {
			return true
		}
	}

	return false
}
