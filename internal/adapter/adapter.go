// adapter переводит сырые формы ответа GraphQL в нормализованную модель.
// Все функции чистые и тотальные: отсутствующие части заменяются
// значениями по умолчанию, неизвестные реакции отбрасываются.
package adapter

import (
	"github.com/pribylovaa/agora/internal/github"
	"github.com/pribylovaa/agora/internal/models"
)

// User — nil-автор превращается в models.DeletedUser.
func User(u *github.GUser) models.User {
	if u == nil {
		return models.DeletedUser
	}

	return models.User{AvatarURL: u.AvatarURL, Login: u.Login, URL: u.URL}
}

// Viewer — в отличие от User, отсутствие зрителя остаётся nil.
func Viewer(u *github.GUser) *models.User {
	if u == nil {
		return nil
	}

	v := User(u)
	return &v
}

// ReactionGroups переносит users.totalCount в Count.
func ReactionGroups(in []github.GReactionGroup) models.ReactionGroups {
	out := make(models.ReactionGroups, 0, len(in))
	for _, g := range in {
		content, ok := models.ParseReactionContent(g.Content)
		if !ok {
			continue
		}

		count := g.Users.TotalCount
		if count < 0 {
			count = 0
		}

		out = append(out, models.ReactionGroup{
			Content:          content,
			Count:            count,
			ViewerHasReacted: g.ViewerHasReacted,
		})
	}

	return out
}

// Reply берёт ReplyToID из replyTo.id.
func Reply(in github.GReply) models.Reply {
	r := models.Reply{
		ID:                in.ID,
		Author:            User(in.Author),
		ViewerDidAuthor:   in.ViewerDidAuthor,
		CreatedAt:         in.CreatedAt,
		URL:               in.URL,
		AuthorAssociation: models.ParseAuthorAssociation(in.AuthorAssociation),
		LastEditedAt:      in.LastEditedAt,
		DeletedAt:         in.DeletedAt,
		IsMinimized:       in.IsMinimized,
		BodyHTML:          in.BodyHTML,
		ReactionGroups:    ReactionGroups(in.ReactionGroups),
	}

	if in.ReplyTo != nil {
		id := in.ReplyTo.ID
		r.ReplyToID = &id
	}

	return r
}

// Comment переносит replies.totalCount в ReplyCount.
func Comment(in github.GTopComment) models.Comment {
	replies := make([]models.Reply, 0, len(in.Replies.Nodes))
	for _, r := range in.Replies.Nodes {
		replies = append(replies, Reply(r))
	}

	return models.Comment{
		ID:                in.ID,
		Author:            User(in.Author),
		ViewerDidAuthor:   in.ViewerDidAuthor,
		CreatedAt:         in.CreatedAt,
		URL:               in.URL,
		AuthorAssociation: models.ParseAuthorAssociation(in.AuthorAssociation),
		LastEditedAt:      in.LastEditedAt,
		DeletedAt:         in.DeletedAt,
		IsMinimized:       in.IsMinimized,
		BodyHTML:          in.BodyHTML,
		ReactionGroups:    ReactionGroups(in.ReactionGroups),
		UpvoteCount:       in.UpvoteCount,
		ViewerHasUpvoted:  in.ViewerHasUpvoted,
		ViewerCanUpvote:   in.ViewerCanUpvote,
		Replies:           replies,
		ReplyCount:        in.Replies.TotalCount,
	}
}

// Discussion возвращает nil для nil-входа. TotalReplyCount — сумма
// replies.totalCount по загруженным комментариям.
func Discussion(in *github.GDiscussion) *models.Discussion {
	if in == nil {
		return nil
	}

	comments := make([]models.Comment, 0, len(in.Comments.Nodes))
	totalReplies := 0
	for _, c := range in.Comments.Nodes {
		comments = append(comments, Comment(c))
		totalReplies += c.Replies.TotalCount
	}

	return &models.Discussion{
		ID:                in.ID,
		URL:               in.URL,
		Locked:            in.Locked,
		RepoNameWithOwner: in.Repository.NameWithOwner,
		ReactionGroups:    ReactionGroups(in.ReactionGroups),
		TotalCommentCount: in.Comments.TotalCount,
		TotalReplyCount:   totalReplies,
		Comments:          comments,
		PageInfo: models.PageInfo{
			StartCursor:     in.Comments.PageInfo.StartCursor,
			EndCursor:       in.Comments.PageInfo.EndCursor,
			HasNextPage:     in.Comments.PageInfo.HasNextPage,
			HasPreviousPage: in.Comments.PageInfo.HasPreviousPage,
		},
	}
}

// Categories собирает ответ по категориям; nil-репозиторий даёт ok == false.
func Categories(in github.CategoriesData) (models.CategoryResult, bool) {
	if in.Repository == nil {
		return models.CategoryResult{}, false
	}

	cats := make([]models.Category, 0, len(in.Repository.DiscussionCategories.Nodes))
	for _, c := range in.Repository.DiscussionCategories.Nodes {
		cats = append(cats, models.Category{ID: c.ID, Name: c.Name, EmojiHTML: c.EmojiHTML})
	}

	return models.CategoryResult{RepositoryID: in.Repository.ID, Categories: cats}, true
}
