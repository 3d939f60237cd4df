package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/agora/internal/errors"
)

// Authorize — GET /api/oauth/authorize?redirect_uri=: 302 на провайдера.
func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	const op = "handlers/Authorize"

	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "empty redirect_uri"), "redirect_uri is required"))
		return
	}

	target, err := h.OAuth.AuthorizeURL(r.Context(), redirectURI, h.callbackURL(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Callback — GET /api/oauth/callback?code=&state=: 302 на return URL с session.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	const op = "handlers/Callback"

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "empty code or state"), "code and state are required"))
		return
	}

	target, err := h.OAuth.Callback(r.Context(), code, state, h.callbackURL(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

type tokenRequest struct {
	Session string `json:"session"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token — POST /api/oauth/token {session}: 200 {token}.
func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	const op = "handlers/Token"

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "bad body"), "invalid JSON body"))
		return
	}
	if req.Session == "" {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "empty session"), "session is required"))
		return
	}

	token, err := h.OAuth.ExchangeSession(r.Context(), req.Session)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
