package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pribylovaa/agora/internal/models"
)

// Proxy читает через бэкенд (/api/discussions), который ходит в API
// со своим токеном. Используется, когда пользователь не вошёл.
type Proxy struct {
	base string
	hc   *http.Client
}

// NewProxy — base — origin бэкенда, например "https://comments.example".
func NewProxy(base string, hc *http.Client) *Proxy {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Proxy{base: strings.TrimSuffix(base, "/"), hc: hc}
}

// Discussion — GET /api/discussions.
func (p *Proxy) Discussion(ctx context.Context, params GetDiscussionParams) (*models.DiscussionResult, error) {
	const op = "discussion/proxy/Discussion"

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{}
	q.Set("repo", params.Repo)
	if params.Number > 0 {
		q.Set("number", strconv.Itoa(params.Number))
	} else {
		q.Set("term", params.Term)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Strict {
		q.Set("strict", "1")
	}
	if params.First > 0 {
		q.Set("first", strconv.Itoa(params.First))
	}
	if params.Last > 0 {
		q.Set("last", strconv.Itoa(params.Last))
	}
	if params.After != "" {
		q.Set("after", params.After)
	}
	if params.Before != "" {
		q.Set("before", params.Before)
	}

	var res models.DiscussionResult
	if err := p.get(ctx, "/api/discussions", q, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &res, nil
}

// Categories — GET /api/discussions/categories.
func (p *Proxy) Categories(ctx context.Context, repo string) (*models.CategoryResult, error) {
	const op = "discussion/proxy/Categories"

	if _, _, err := SplitRepo(repo); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var res models.CategoryResult
	if err := p.get(ctx, "/api/discussions/categories", url.Values{"repo": {repo}}, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &res, nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Proxy) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)

		return fmt.Errorf("status %d: %s: %w", resp.StatusCode, eb.Error.Message, statusKind(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", models.ErrUpstream, err)
	}

	return nil
}

func statusKind(code int) error {
	switch code {
	case http.StatusBadRequest:
		return models.ErrValidation
	case http.StatusNotFound:
		return models.ErrNotFound
	default:
		return models.ErrUpstream
	}
}
