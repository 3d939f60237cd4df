package discussion

import (
	"context"
	"fmt"

	"github.com/pribylovaa/agora/internal/github"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// ProviderGitHub — имя поставщика GitHub Discussions.
const ProviderGitHub = "github"

// GitHub — Provider поверх GitHub Discussions. Стратегия чтения выбирается
// на каждый вызов: есть токен — Direct, нет — Proxy.
type GitHub struct {
	client *github.Client
	proxy  Source
	tokens TokenSource
}

// NewGitHub собирает поставщика. proxy может быть nil: тогда анонимное
// чтение недоступно и возвращает models.ErrAuthenticationRequired.
func NewGitHub(client *github.Client, proxy Source, tokens TokenSource) *GitHub {
	return &GitHub{client: client, proxy: proxy, tokens: tokens}
}

func (g *GitHub) Name() string { return ProviderGitHub }

func (g *GitHub) GetDiscussion(ctx context.Context, p GetDiscussionParams) (*models.DiscussionResult, error) {
	src, err := g.source(ctx)
	if err != nil {
		return nil, err
	}

	return src.Discussion(ctx, p)
}

func (g *GitHub) GetCategories(ctx context.Context, repo string) (*models.CategoryResult, error) {
	src, err := g.source(ctx)
	if err != nil {
		return nil, err
	}

	return src.Categories(ctx, repo)
}

func (g *GitHub) CreateDiscussion(ctx context.Context, p CreateDiscussionParams) (string, error) {
	d, err := g.authed(ctx, "discussion/github/CreateDiscussion")
	if err != nil {
		return "", err
	}

	return d.CreateDiscussion(ctx, p)
}

func (g *GitHub) AddComment(ctx context.Context, p AddCommentParams) (*models.Comment, error) {
	d, err := g.authed(ctx, "discussion/github/AddComment")
	if err != nil {
		return nil, err
	}

	return d.AddComment(ctx, p)
}

func (g *GitHub) AddReply(ctx context.Context, p AddReplyParams) (*models.Reply, error) {
	d, err := g.authed(ctx, "discussion/github/AddReply")
	if err != nil {
		return nil, err
	}

	return d.AddReply(ctx, p)
}

func (g *GitHub) ToggleReaction(ctx context.Context, p ToggleReactionParams) error {
	d, err := g.authed(ctx, "discussion/github/ToggleReaction")
	if err != nil {
		return err
	}

	return d.ToggleReaction(ctx, p)
}

// source — Direct с токеном пользователя или Proxy для анонима.
// Сбой получения токена не мешает анонимному чтению.
func (g *GitHub) source(ctx context.Context) (Source, error) {
	const op = "discussion/github/source"

	token, err := g.token(ctx)
	if err != nil {
		log.From(ctx).Warn("token_lookup_failed", "op", op, "err", err.Error())
	}

	if token != "" {
		return NewDirect(g.client, token), nil
	}

	if g.proxy == nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthenticationRequired)
	}

	return g.proxy, nil
}

// authed — Direct для мутаций; без токена сеть не трогаем.
func (g *GitHub) authed(ctx context.Context, op string) (*Direct, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthenticationRequired)
	}

	return NewDirect(g.client, token), nil
}

func (g *GitHub) token(ctx context.Context) (string, error) {
	if g.tokens == nil {
		return "", nil
	}

	return g.tokens.Token(ctx)
}
