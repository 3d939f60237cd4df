package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pribylovaa/agora/internal/discussion"
	apierrors "github.com/pribylovaa/agora/internal/errors"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// ListDiscussion — GET /api/discussions: анонимное чтение с серверным токеном.
// viewer в ответе всегда null: зритель серверного токена — не пользователь виджета.
func (h *Handlers) ListDiscussion(w http.ResponseWriter, r *http.Request) {
	const op = "handlers/ListDiscussion"

	if h.Reader == nil {
		log.From(r.Context()).Error("server misconfigured: GITHUB_TOKEN is not set", "op", op)
		apierrors.WriteError(w, r, apierrors.Public(fmt.Errorf("%s: %w", op, models.ErrConfiguration), "no GITHUB_TOKEN configured"))
		return
	}

	q := r.URL.Query()

	p := discussion.GetDiscussionParams{
		Repo:     q.Get("repo"),
		Term:     q.Get("term"),
		Category: q.Get("category"),
		Strict:   q.Get("strict") == "1",
		After:    q.Get("after"),
		Before:   q.Get("before"),
	}

	if p.Repo == "" {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "empty repo"), "repo is required"))
		return
	}

	var err error
	if p.Number, err = intParam(q.Get("number")); err != nil {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "bad number"), "number must be a positive integer"))
		return
	}
	if p.First, err = intParam(q.Get("first")); err != nil {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "bad first"), "first must be a positive integer"))
		return
	}
	if p.Last, err = intParam(q.Get("last")); err != nil {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "bad last"), "last must be a positive integer"))
		return
	}

	if p.Number == 0 && p.Term == "" {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "no term or number"), "term or number is required"))
		return
	}

	res, err := h.Reader.Discussion(r.Context(), p)
	if err != nil {
		if !errors.Is(err, models.ErrValidation) {
			log.From(r.Context()).Warn("proxy_read_failed", "op", op, "repo", p.Repo, "err", err.Error())
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.DiscussionResult{Viewer: nil, Discussion: res.Discussion})
}

// ListCategories — GET /api/discussions/categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	const op = "handlers/ListCategories"

	if h.Reader == nil {
		log.From(r.Context()).Error("server misconfigured: GITHUB_TOKEN is not set", "op", op)
		apierrors.WriteError(w, r, apierrors.Public(fmt.Errorf("%s: %w", op, models.ErrConfiguration), "no GITHUB_TOKEN configured"))
		return
	}

	repo := r.URL.Query().Get("repo")
	if repo == "" {
		apierrors.WriteError(w, r, apierrors.Public(invalid(op, "empty repo"), "repo is required"))
		return
	}
	if _, _, err := discussion.SplitRepo(repo); err != nil {
		apierrors.WriteError(w, r, apierrors.Public(err, "invalid repo format, expected owner/name"))
		return
	}

	res, err := h.Reader.Categories(r.Context(), repo)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.From(r.Context()).Warn("categories_failed", "op", op, "repo", repo, "err", err.Error())
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// intParam — пустая строка = 0 (не задано); иначе положительное число.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", v)
	}

	return n, nil
}
