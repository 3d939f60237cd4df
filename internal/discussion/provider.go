// discussion — абстракция поставщика обсуждений и её реализация поверх
// GitHub Discussions с двумя стратегиями чтения, которые выбираются на
// каждый вызов: Direct (GraphQL с токеном пользователя) и Proxy (бэкенд
// читает от своего имени, когда пользователь анонимен).
package discussion

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/agora/internal/models"
)

//go:generate mockgen -source=provider.go -destination=mocks/provider.go -package=mocks

// Provider — контракт движка синхронизации к поставщику обсуждений.
type Provider interface {
	// Name — идентификатор поставщика ("github").
	Name() string
	// GetDiscussion ищет обсуждение; отсутствие обсуждения — не ошибка.
	GetDiscussion(ctx context.Context, p GetDiscussionParams) (*models.DiscussionResult, error)
	// GetCategories возвращает node id репозитория и его категории.
	GetCategories(ctx context.Context, repo string) (*models.CategoryResult, error)
	// CreateDiscussion создаёт обсуждение и возвращает его id.
	CreateDiscussion(ctx context.Context, p CreateDiscussionParams) (string, error)
	// AddComment добавляет комментарий верхнего уровня.
	AddComment(ctx context.Context, p AddCommentParams) (*models.Comment, error)
	// AddReply добавляет ответ на комментарий.
	AddReply(ctx context.Context, p AddReplyParams) (*models.Reply, error)
	// ToggleReaction снимает реакцию, если ViewerHasReacted, иначе ставит.
	ToggleReaction(ctx context.Context, p ToggleReactionParams) error
}

// TokenSource отдаёт access token текущего пользователя; "" — аноним.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Source — стратегия чтения.
type Source interface {
	Discussion(ctx context.Context, p GetDiscussionParams) (*models.DiscussionResult, error)
	Categories(ctx context.Context, repo string) (*models.CategoryResult, error)
}

// GetDiscussionParams — параметры поиска обсуждения.
// Number > 0 имеет приоритет над Term. Нулевые First/Last и пустые
// After/Before означают «не задано».
type GetDiscussionParams struct {
	Repo     string
	Term     string
	Number   int
	Category string
	Strict   bool
	First    int
	Last     int
	After    string
	Before   string
}

// Validate проверяет repo и наличие term или number.
func (p GetDiscussionParams) Validate() error {
	if _, _, err := SplitRepo(p.Repo); err != nil {
		return err
	}

	if p.Number < 0 || p.First < 0 || p.Last < 0 {
		return fmt.Errorf("negative number or page size: %w", models.ErrValidation)
	}

	if p.Number == 0 && p.Term == "" {
		return fmt.Errorf("term or number is required: %w", models.ErrValidation)
	}

	return nil
}

// CreateDiscussionParams — создание обсуждения.
type CreateDiscussionParams struct {
	RepositoryID string
	CategoryID   string
	Title        string
	Body         string
}

func (p CreateDiscussionParams) validate() error {
	if p.RepositoryID == "" || p.CategoryID == "" || strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("repository id, category id and title are required: %w", models.ErrValidation)
	}

	return nil
}

// AddCommentParams — новый комментарий верхнего уровня.
type AddCommentParams struct {
	DiscussionID string
	Body         string
}

func (p AddCommentParams) validate() error {
	if p.DiscussionID == "" || strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("discussion id and body are required: %w", models.ErrValidation)
	}

	return nil
}

// AddReplyParams — ответ на комментарий CommentID.
type AddReplyParams struct {
	DiscussionID string
	CommentID    string
	Body         string
}

func (p AddReplyParams) validate() error {
	if p.DiscussionID == "" || p.CommentID == "" || strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("discussion id, comment id and body are required: %w", models.ErrValidation)
	}

	return nil
}

// ToggleReactionParams — ViewerHasReacted отражает состояние ДО переключения.
type ToggleReactionParams struct {
	SubjectID        string
	Reaction         models.ReactionContent
	ViewerHasReacted bool
}

func (p ToggleReactionParams) validate() error {
	if p.SubjectID == "" || !p.Reaction.Valid() {
		return fmt.Errorf("subject id and known reaction are required: %w", models.ErrValidation)
	}

	return nil
}

// SplitRepo разбирает "owner/name".
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repo must be owner/name: %w", models.ErrValidation)
	}

	return owner, name, nil
}
