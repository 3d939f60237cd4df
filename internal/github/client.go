// github — транспорт к GraphQL API GitHub: документы запросов, сырые формы
// ответов и клиент, который считает отказом любой не-2xx ответ и
// непустой массив errors.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"github.com/pribylovaa/agora/internal/metrics"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// DefaultEndpoint — публичный GraphQL endpoint GitHub.
const DefaultEndpoint = "https://api.github.com/graphql"

// ErrorTypeNotFound — тип ошибки GitHub для несуществующего узла.
const ErrorTypeNotFound = "NOT_FOUND"

// GraphQLError — элемент массива errors ответа.
type GraphQLError struct {
	Type    string `json:"type"`
	Path    []any  `json:"path"`
	Message string `json:"message"`
}

// PathIs сравнивает путь ошибки поэлементно.
func (e GraphQLError) PathIs(path ...string) bool {
	if len(e.Path) != len(path) {
		return false
	}

	for i, p := range e.Path {
		if fmt.Sprint(p) != path[i] {
			return false
		}
	}

	return true
}

// Error — отказ вызова GraphQL. Всегда оборачивает models.ErrUpstream.
type Error struct {
	Op      string
	Status  int // HTTP-статус, если отказ на уровне HTTP
	Message string
	Errors  []GraphQLError
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("github %s: status %d: %s", e.Op, e.Status, e.Message)
	}

	return fmt.Sprintf("github %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{models.ErrUpstream}
	}

	return []error{models.ErrUpstream, e.Err}
}

// NotFoundAt сообщает, что err — ответ GraphQL, все ошибки которого
// NOT_FOUND по пути path. data такого ответа уже декодирован.
func NotFoundAt(err error, path ...string) bool {
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Status != 0 || len(gerr.Errors) == 0 {
		return false
	}

	for _, e := range gerr.Errors {
		if e.Type != ErrorTypeNotFound || !e.PathIs(path...) {
			return false
		}
	}

	return true
}

func allNotFound(errs []GraphQLError) bool {
	if len(errs) == 0 {
		return false
	}

	for _, e := range errs {
		if e.Type != ErrorTypeNotFound {
			return false
		}
	}

	return true
}

// StatusError — не-2xx ответ endpoint-а.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

type errorsKey struct{}

// statusTransport превращает не-2xx ответ в ошибку до декодирования тела
// и, если в контексте запроса есть приёмник, копирует в него массив errors.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	sink, ok := r.Context().Value(errorsKey{}).(*[]GraphQLError)
	if !ok {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var env struct {
		Errors []GraphQLError `json:"errors"`
	}
	if json.Unmarshal(body, &env) == nil {
		*sink = env.Errors
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return resp, nil
}

// Client выполняет GraphQL-запросы с bearer-токеном вызывающего.
type Client struct {
	gql *graphql.Client
}

// NewClient создаёт клиента. Пустой endpoint — DefaultEndpoint, nil httpClient — http.DefaultClient.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	hc := *httpClient
	hc.Transport = statusTransport{base: base}

	return &Client{gql: graphql.NewClient(endpoint, graphql.WithHTTPClient(&hc))}
}

// Do выполняет документ query с переменными vars и декодирует data в out.
// nil-значения переменных не отправляются.
func (c *Client) Do(ctx context.Context, op, token, query string, vars map[string]any, out any) error {
	lg := log.From(ctx).With("op", "github/"+op)

	req := graphql.NewRequest(query)
	for k, v := range vars {
		if v == nil {
			continue
		}
		req.Var(k, v)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var gqlErrors []GraphQLError
	ctx = context.WithValue(ctx, errorsKey{}, &gqlErrors)

	start := time.Now()
	err := c.gql.Run(ctx, req, out)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()

	if err == nil {
		return nil
	}

	gerr := &Error{Op: op, Message: strings.TrimPrefix(err.Error(), "graphql: "), Errors: gqlErrors, Err: err}

	var se *StatusError
	if errors.As(err, &se) {
		gerr.Status = se.Code
		gerr.Message = http.StatusText(se.Code)
	}

	if allNotFound(gqlErrors) {
		lg.Debug("graphql_not_found", "err", gerr.Message)
		return gerr
	}

	lg.Warn("graphql_request_failed",
		"status", gerr.Status,
		"err", gerr.Message,
	)

	return gerr
}
