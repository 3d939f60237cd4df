package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pribylovaa/agora/internal/models"
)

// Exchanger меняет session-токен на access token.
// Отказ по самому токену должен оборачивать models.ErrToken.
type Exchanger interface {
	Exchange(ctx context.Context, session string) (string, error)
}

// HTTPExchanger — POST {session} на <host>/api/oauth/token.
type HTTPExchanger struct {
	host string
	hc   *http.Client
}

func NewHTTPExchanger(host string, hc *http.Client) *HTTPExchanger {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &HTTPExchanger{host: strings.TrimSuffix(host, "/"), hc: hc}
}

func (e *HTTPExchanger) Exchange(ctx context.Context, session string) (string, error) {
	const op = "session/HTTPExchanger.Exchange"

	body, err := json.Marshal(map[string]string{"session": session})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, models.ErrToken)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, models.ErrUpstream)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w: %w", op, models.ErrUpstream, err)
	}

	if out.Token == "" {
		return "", fmt.Errorf("%s: empty token: %w", op, models.ErrToken)
	}

	return out.Token, nil
}
