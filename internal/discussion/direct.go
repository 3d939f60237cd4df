package discussion

import (
	"context"
	"fmt"

	"github.com/pribylovaa/agora/internal/adapter"
	"github.com/pribylovaa/agora/internal/github"
	"github.com/pribylovaa/agora/internal/mapping"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// Direct ходит в GraphQL API с одним токеном. На клиенте это токен
// пользователя, на бэкенде (прокси-чтения) — серверный токен.
type Direct struct {
	client *github.Client
	token  string
}

// NewDirect привязывает GraphQL-клиента к токену.
func NewDirect(client *github.Client, token string) *Direct {
	return &Direct{client: client, token: token}
}

// Discussion ищет по номеру, иначе последним результатом поиска по term.
func (d *Direct) Discussion(ctx context.Context, p GetDiscussionParams) (*models.DiscussionResult, error) {
	const op = "discussion/direct/Discussion"

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner, name, _ := SplitRepo(p.Repo)
	vars := pageVars(p)

	if p.Number > 0 {
		vars["owner"] = owner
		vars["name"] = name
		vars["number"] = p.Number

		var data github.DiscussionByNumberData
		err := d.client.Do(ctx, "discussion_by_number", d.token, github.DiscussionByNumberQuery, vars, &data)
		switch {
		case github.NotFoundAt(err, "repository", "discussion"):
			// номера нет в репозитории: data с viewer уже декодирован
			log.From(ctx).Info("discussion_not_found", "op", op, "repo", p.Repo, "number", p.Number)
			return &models.DiscussionResult{Viewer: adapter.Viewer(data.Viewer)}, nil
		case github.NotFoundAt(err, "repository"):
			return nil, fmt.Errorf("%s: repository %q: %w", op, p.Repo, models.ErrNotFound)
		case err != nil:
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		res := &models.DiscussionResult{Viewer: adapter.Viewer(data.Viewer)}
		if data.Repository != nil {
			res.Discussion = adapter.Discussion(data.Repository.Discussion)
		}

		return res, nil
	}

	vars["query"] = mapping.BuildSearchQuery(p.Repo, p.Category, p.Term, p.Strict)

	var data github.DiscussionSearchData
	if err := d.client.Do(ctx, "discussion_search", d.token, github.DiscussionSearchQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &models.DiscussionResult{Viewer: adapter.Viewer(data.Viewer)}
	if n := len(data.Search.Nodes); n > 0 {
		res.Discussion = adapter.Discussion(data.Search.Nodes[n-1])
	}

	return res, nil
}

// Categories — первые 25 категорий репозитория.
func (d *Direct) Categories(ctx context.Context, repo string) (*models.CategoryResult, error) {
	const op = "discussion/direct/Categories"

	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var data github.CategoriesData
	vars := map[string]any{"owner": owner, "name": name}
	err = d.client.Do(ctx, "categories", d.token, github.CategoriesQuery, vars, &data)
	if err != nil && !github.NotFoundAt(err, "repository") {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, ok := adapter.Categories(data)
	if !ok {
		log.From(ctx).Info("repository_not_found", "op", op, "repo", repo)
		return nil, fmt.Errorf("%s: repository %q: %w", op, repo, models.ErrNotFound)
	}

	return &res, nil
}

// CreateDiscussion создаёт обсуждение в категории репозитория.
func (d *Direct) CreateDiscussion(ctx context.Context, p CreateDiscussionParams) (string, error) {
	const op = "discussion/direct/CreateDiscussion"

	if err := p.validate(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	input := map[string]any{
		"repositoryId": p.RepositoryID,
		"categoryId":   p.CategoryID,
		"title":        p.Title,
		"body":         p.Body,
	}

	var data github.CreateDiscussionData
	if err := d.client.Do(ctx, "create_discussion", d.token, github.CreateDiscussionMutation, map[string]any{"input": input}, &data); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return data.CreateDiscussion.Discussion.ID, nil
}

// AddComment публикует комментарий верхнего уровня.
func (d *Direct) AddComment(ctx context.Context, p AddCommentParams) (*models.Comment, error) {
	const op = "discussion/direct/AddComment"

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var data github.AddCommentData
	vars := map[string]any{"body": p.Body, "discussionId": p.DiscussionID}
	if err := d.client.Do(ctx, "add_comment", d.token, github.AddCommentMutation, vars, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := adapter.Comment(data.AddDiscussionComment.Comment)
	return &c, nil
}

// AddReply публикует ответ на комментарий.
func (d *Direct) AddReply(ctx context.Context, p AddReplyParams) (*models.Reply, error) {
	const op = "discussion/direct/AddReply"

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var data github.AddReplyData
	vars := map[string]any{"body": p.Body, "discussionId": p.DiscussionID, "replyToId": p.CommentID}
	if err := d.client.Do(ctx, "add_reply", d.token, github.AddReplyMutation, vars, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := adapter.Reply(data.AddDiscussionComment.Comment)
	return &r, nil
}

// ToggleReaction снимает реакцию при ViewerHasReacted, иначе ставит.
func (d *Direct) ToggleReaction(ctx context.Context, p ToggleReactionParams) error {
	const op = "discussion/direct/ToggleReaction"

	if err := p.validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	opName, mutation := "add_reaction", github.AddReactionMutation
	if p.ViewerHasReacted {
		opName, mutation = "remove_reaction", github.RemoveReactionMutation
	}

	var data github.ReactionData
	vars := map[string]any{"content": string(p.Reaction), "subjectId": p.SubjectID}
	if err := d.client.Do(ctx, opName, d.token, mutation, vars, &data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func pageVars(p GetDiscussionParams) map[string]any {
	vars := make(map[string]any, 8)
	if p.First > 0 {
		vars["first"] = p.First
	}
	if p.Last > 0 {
		vars["last"] = p.Last
	}
	if p.After != "" {
		vars["after"] = p.After
	}
	if p.Before != "" {
		vars["before"] = p.Before
	}

	return vars
}
