package github

import "time"

// Сырые формы ответов GraphQL GitHub. Наружу не отдаются: их
// переводит в internal/models пакет adapter.

// GUser — автор/зритель; для удалённого аккаунта author == null.
type GUser struct {
	AvatarURL string `json:"avatarUrl"`
	Login     string `json:"login"`
	URL       string `json:"url"`
}

// GReactionGroup — реакция с числом пользователей.
type GReactionGroup struct {
	Content string `json:"content"`
	Users   struct {
		TotalCount int `json:"totalCount"`
	} `json:"users"`
	ViewerHasReacted bool `json:"viewerHasReacted"`
}

// GComment — общие поля комментария и ответа.
type GComment struct {
	ID                string           `json:"id"`
	Author            *GUser           `json:"author"`
	ViewerDidAuthor   bool             `json:"viewerDidAuthor"`
	CreatedAt         time.Time        `json:"createdAt"`
	URL               string           `json:"url"`
	AuthorAssociation string           `json:"authorAssociation"`
	LastEditedAt      *time.Time       `json:"lastEditedAt"`
	DeletedAt         *time.Time       `json:"deletedAt"`
	IsMinimized       bool             `json:"isMinimized"`
	BodyHTML          string           `json:"bodyHTML"`
	ReactionGroups    []GReactionGroup `json:"reactionGroups"`
}

// GReply — ответ на комментарий.
type GReply struct {
	GComment
	ReplyTo *struct {
		ID string `json:"id"`
	} `json:"replyTo"`
}

// GTopComment — комментарий верхнего уровня.
type GTopComment struct {
	GComment
	UpvoteCount      int  `json:"upvoteCount"`
	ViewerHasUpvoted bool `json:"viewerHasUpvoted"`
	ViewerCanUpvote  bool `json:"viewerCanUpvote"`
	Replies          struct {
		TotalCount int      `json:"totalCount"`
		Nodes      []GReply `json:"nodes"`
	} `json:"replies"`
}

// GPageInfo — курсоры соединения comments.
type GPageInfo struct {
	StartCursor     *string `json:"startCursor"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	EndCursor       *string `json:"endCursor"`
}

// GDiscussion — обсуждение.
type GDiscussion struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Locked     bool   `json:"locked"`
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	Reactions struct {
		TotalCount int `json:"totalCount"`
	} `json:"reactions"`
	ReactionGroups []GReactionGroup `json:"reactionGroups"`
	Comments       struct {
		TotalCount int           `json:"totalCount"`
		PageInfo   GPageInfo     `json:"pageInfo"`
		Nodes      []GTopComment `json:"nodes"`
	} `json:"comments"`
}

// GCategory — категория обсуждений.
type GCategory struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EmojiHTML string `json:"emojiHTML"`
}

// DiscussionByNumberData — data для DiscussionByNumberQuery.
type DiscussionByNumberData struct {
	Viewer     *GUser `json:"viewer"`
	Repository *struct {
		Discussion *GDiscussion `json:"discussion"`
	} `json:"repository"`
}

// DiscussionSearchData — data для DiscussionSearchQuery.
type DiscussionSearchData struct {
	Viewer *GUser `json:"viewer"`
	Search struct {
		DiscussionCount int            `json:"discussionCount"`
		Nodes           []*GDiscussion `json:"nodes"`
	} `json:"search"`
}

// CategoriesData — data для CategoriesQuery.
type CategoriesData struct {
	Repository *struct {
		ID                   string `json:"id"`
		DiscussionCategories struct {
			Nodes []GCategory `json:"nodes"`
		} `json:"discussionCategories"`
	} `json:"repository"`
}

// CreateDiscussionData — data для CreateDiscussionMutation.
type CreateDiscussionData struct {
	CreateDiscussion struct {
		Discussion struct {
			ID string `json:"id"`
		} `json:"discussion"`
	} `json:"createDiscussion"`
}

// AddCommentData — data для AddCommentMutation.
type AddCommentData struct {
	AddDiscussionComment struct {
		Comment GTopComment `json:"comment"`
	} `json:"addDiscussionComment"`
}

// AddReplyData — data для AddReplyMutation.
type AddReplyData struct {
	AddDiscussionComment struct {
		Comment GReply `json:"comment"`
	} `json:"addDiscussionComment"`
}

// ReactionData — data для AddReactionMutation / RemoveReactionMutation.
type ReactionData struct {
	Reaction *struct {
		Reaction struct {
			Content string `json:"content"`
		} `json:"reaction"`
	} `json:"reaction"`
}
