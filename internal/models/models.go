// Package models содержит нормализованную модель обсуждения, которую
// отдаёт бэкенд и которой владеет движок синхронизации на клиенте.
//
// Важно:
//   - модель иммутабельна по соглашению: после первичной загрузки её заменяет
//     только движок синхронизации, целиком, с разделением неизменённых частей;
//   - JSON-имена в camelCase — контракт встраиваемого виджета;
//   - сырые формы GraphQL живут в internal/github и сюда не протекают.
package models

import (
	"encoding/json"
	"time"
)

// User — автор или текущий зритель.
type User struct {
	AvatarURL string `json:"avatarUrl"`
	Login     string `json:"login"`
	URL       string `json:"url"`
}

// DeletedUser — подстановка для удалённого автора (author == null в API).
var DeletedUser = User{AvatarURL: "", Login: "[deleted]", URL: ""}

// ReactionGroup — счётчик одной реакции на сущности.
// Count никогда не бывает отрицательным.
type ReactionGroup struct {
	Content          ReactionContent `json:"content"`
	Count            int             `json:"count"`
	ViewerHasReacted bool            `json:"viewerHasReacted"`
}

// MarshalJSON добавляет к группе символ реакции ("emoji") для отрисовки
// виджетом. При разборе поле игнорируется: символ выводится из Content.
func (g ReactionGroup) MarshalJSON() ([]byte, error) {
	type plain ReactionGroup

	return json.Marshal(struct {
		plain
		Emoji string `json:"emoji"`
	}{plain: plain(g), Emoji: g.Content.Emoji()})
}

// Reply — ответ на комментарий верхнего уровня.
type Reply struct {
	ID                string            `json:"id"`
	Author            User              `json:"author"`
	ViewerDidAuthor   bool              `json:"viewerDidAuthor"`
	CreatedAt         time.Time         `json:"createdAt"`
	URL               string            `json:"url"`
	AuthorAssociation AuthorAssociation `json:"authorAssociation"`
	LastEditedAt      *time.Time        `json:"lastEditedAt"`
	DeletedAt         *time.Time        `json:"deletedAt"`
	IsMinimized       bool              `json:"isMinimized"`
	BodyHTML          string            `json:"bodyHTML"`
	ReactionGroups    ReactionGroups    `json:"reactionGroups"`
	ReplyToID         *string           `json:"replyToId"`
}

// Comment — комментарий верхнего уровня. Replies идут в порядке вставки,
// ReplyCount — серверный счётчик (может быть больше len(Replies)).
type Comment struct {
	ID                string            `json:"id"`
	Author            User              `json:"author"`
	ViewerDidAuthor   bool              `json:"viewerDidAuthor"`
	CreatedAt         time.Time         `json:"createdAt"`
	URL               string            `json:"url"`
	AuthorAssociation AuthorAssociation `json:"authorAssociation"`
	LastEditedAt      *time.Time        `json:"lastEditedAt"`
	DeletedAt         *time.Time        `json:"deletedAt"`
	IsMinimized       bool              `json:"isMinimized"`
	BodyHTML          string            `json:"bodyHTML"`
	ReactionGroups    ReactionGroups    `json:"reactionGroups"`
	UpvoteCount       int               `json:"upvoteCount"`
	ViewerHasUpvoted  bool              `json:"viewerHasUpvoted"`
	ViewerCanUpvote   bool              `json:"viewerCanUpvote"`
	Replies           []Reply           `json:"replies"`
	ReplyCount        int               `json:"replyCount"`
}

// PageInfo — курсоры постраничной выдачи комментариев.
type PageInfo struct {
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

// Discussion — корень обсуждения, привязанного к странице хоста.
//
// TotalReplyCount считается по загруженной странице комментариев,
// поэтому при частичной выдаче он занижен.
type Discussion struct {
	ID                string         `json:"id"`
	URL               string         `json:"url"`
	Locked            bool           `json:"locked"`
	RepoNameWithOwner string         `json:"repoNameWithOwner"`
	ReactionGroups    ReactionGroups `json:"reactionGroups"`
	TotalCommentCount int            `json:"totalCommentCount"`
	TotalReplyCount   int            `json:"totalReplyCount"`
	Comments          []Comment      `json:"comments"`
	PageInfo          PageInfo       `json:"pageInfo"`
}

// DiscussionResult — результат чтения: зритель (nil для анонимного пути)
// и обсуждение (nil, если не найдено — это не ошибка).
type DiscussionResult struct {
	Viewer     *User       `json:"viewer"`
	Discussion *Discussion `json:"discussion"`
}

// Category — категория обсуждений репозитория.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EmojiHTML string `json:"emojiHTML"`
}

// CategoryResult — категории репозитория вместе с его node id.
type CategoryResult struct {
	RepositoryID string     `json:"repositoryId"`
	Categories   []Category `json:"categories"`
}

// DiscussionMetadata — сводка, которую хост получает после каждой замены снимка.
type DiscussionMetadata struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Locked            bool   `json:"locked"`
	ReactionCount     int    `json:"reactionCount"`
	TotalCommentCount int    `json:"totalCommentCount"`
	TotalReplyCount   int    `json:"totalReplyCount"`
}

// Metadata собирает сводку по обсуждению.
func (d *Discussion) Metadata() DiscussionMetadata {
	return DiscussionMetadata{
		ID:                d.ID,
		URL:               d.URL,
		Locked:            d.Locked,
		ReactionCount:     d.ReactionGroups.Total(),
		TotalCommentCount: d.TotalCommentCount,
		TotalReplyCount:   d.TotalReplyCount,
	}
}
