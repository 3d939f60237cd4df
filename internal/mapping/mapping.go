// mapping связывает страницу хоста с обсуждением: вычисляет term по
// выбранной стратегии, строит поисковый запрос и strict-отпечаток.
package mapping

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Strategy — способ получить term по странице.
type Strategy string

const (
	StrategyPathname Strategy = "pathname"
	StrategyURL      Strategy = "url"
	StrategyTitle    Strategy = "title"
	StrategyOGTitle  Strategy = "og:title"
	StrategySpecific Strategy = "specific"
	StrategyNumber   Strategy = "number"
)

// Page — то, что известно о странице хоста.
type Page struct {
	URL     *url.URL
	Title   string
	OGTitle string
	// Term — заданный явно term для StrategySpecific.
	Term string
}

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign"}

// ResolveTerm вычисляет term. Для StrategyNumber term не нужен и возвращается "".
func ResolveTerm(s Strategy, p Page) string {
	switch s {
	case StrategyPathname:
		if p.URL == nil {
			return "/"
		}
		return normalizePath(p.URL.Path)
	case StrategyURL:
		if p.URL == nil {
			return ""
		}
		return cleanURL(p.URL)
	case StrategyTitle:
		return p.Title
	case StrategyOGTitle:
		if p.OGTitle != "" {
			return p.OGTitle
		}
		return p.Title
	case StrategySpecific:
		return p.Term
	case StrategyNumber:
		return ""
	default:
		if p.URL == nil {
			return "/"
		}
		return normalizePath(p.URL.Path)
	}
}

// normalizePath убирает расширение и завершающий слэш; пустой путь -> "/".
func normalizePath(p string) string {
	if ext := path.Ext(p); ext != "" {
		p = strings.TrimSuffix(p, ext)
	}

	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "/"
	}

	return p
}

// cleanURL убирает фрагмент и utm-метки.
func cleanURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""

	q := c.Query()
	for _, name := range trackingParams {
		q.Del(name)
	}
	c.RawQuery = q.Encode()

	return c.String()
}

// Fingerprint — некриптографический 64-битный отпечаток term в hex.
// Встраивается в тело обсуждения в strict-режиме и ищется по in:body.
func Fingerprint(term string) string {
	return strconv.FormatUint(xxhash.Sum64String(term), 16)
}

// StrictMarker — HTML-комментарий с отпечатком для тела обсуждения.
func StrictMarker(term string) string {
	return fmt.Sprintf("<!-- agora-strict %s -->", Fingerprint(term))
}

// BuildSearchQuery строит запрос к поиску обсуждений.
//
//	strict:     repo:R category:"C" in:body "<fingerprint>"
//	non-strict: repo:R category:"C" in:title "<term>"
//
// Пустая категория опускается.
func BuildSearchQuery(repo, category, term string, strict bool) string {
	var b strings.Builder
	b.WriteString("repo:")
	b.WriteString(repo)

	if category != "" {
		fmt.Fprintf(&b, " category:%q", category)
	}

	if strict {
		fmt.Fprintf(&b, " in:body %q", Fingerprint(term))
	} else {
		fmt.Fprintf(&b, " in:title %q", term)
	}

	return b.String()
}

// DiscussionTitle — заголовок создаваемого обсуждения.
func DiscussionTitle(term string, number int) string {
	if term != "" {
		return term
	}

	return fmt.Sprintf("Comments for %d", number)
}

// DiscussionBody — тело создаваемого обсуждения; в strict-режиме с маркером.
func DiscussionBody(term string, strict bool) string {
	const body = "Comments for this page."
	if !strict {
		return body
	}

	return StrictMarker(term) + "\n\n" + body
}
