package github

// Фрагменты полей повторяются в запросах и мутациях, поэтому собираются из констант.

const userFields = `avatarUrl login url`

const reactionFields = `
	content
	users { totalCount }
	viewerHasReacted`

const commentFields = `
	id
	author { ` + userFields + ` }
	viewerDidAuthor
	createdAt
	url
	authorAssociation
	lastEditedAt
	deletedAt
	isMinimized
	bodyHTML
	reactionGroups {` + reactionFields + ` }`

const replyFields = commentFields + `
	replyTo { id }`

const topCommentFields = commentFields + `
	upvoteCount
	viewerHasUpvoted
	viewerCanUpvote
	replies(last: 100) {
		totalCount
		nodes {` + replyFields + ` }
	}`

const discussionFields = `
	id
	url
	locked
	repository { nameWithOwner }
	reactions { totalCount }
	reactionGroups {` + reactionFields + ` }
	comments(first: $first, last: $last, after: $after, before: $before) {
		totalCount
		pageInfo { startCursor hasNextPage hasPreviousPage endCursor }
		nodes {` + topCommentFields + ` }
	}`

const pageVars = `$first: Int, $last: Int, $after: String, $before: String`

// DiscussionByNumberQuery — обсуждение по номеру внутри репозитория.
const DiscussionByNumberQuery = `
query DiscussionByNumber($owner: String!, $name: String!, $number: Int!, ` + pageVars + `) {
	viewer { ` + userFields + ` }
	repository(owner: $owner, name: $name) {
		discussion(number: $number) {` + discussionFields + ` }
	}
}`

// DiscussionSearchQuery — последнее обсуждение, найденное поиском.
const DiscussionSearchQuery = `
query DiscussionSearch($query: String!, ` + pageVars + `) {
	viewer { ` + userFields + ` }
	search(type: DISCUSSION, last: 1, query: $query) {
		discussionCount
		nodes {
			... on Discussion {` + discussionFields + ` }
		}
	}
}`

// CategoriesQuery — node id репозитория и его категории обсуждений.
const CategoriesQuery = `
query Categories($owner: String!, $name: String!) {
	repository(owner: $owner, name: $name) {
		id
		discussionCategories(first: 25) {
			nodes { id name emojiHTML }
		}
	}
}`

// CreateDiscussionMutation создаёт обсуждение.
const CreateDiscussionMutation = `
mutation CreateDiscussion($input: CreateDiscussionInput!) {
	createDiscussion(input: $input) {
		discussion { id }
	}
}`

// AddCommentMutation добавляет комментарий верхнего уровня.
const AddCommentMutation = `
mutation AddComment($body: String!, $discussionId: ID!) {
	addDiscussionComment(input: { body: $body, discussionId: $discussionId }) {
		comment {` + topCommentFields + ` }
	}
}`

// AddReplyMutation добавляет ответ на комментарий.
const AddReplyMutation = `
mutation AddReply($body: String!, $discussionId: ID!, $replyToId: ID!) {
	addDiscussionComment(input: { body: $body, discussionId: $discussionId, replyToId: $replyToId }) {
		comment {` + replyFields + ` }
	}
}`

// AddReactionMutation ставит реакцию.
const AddReactionMutation = `
mutation AddReaction($content: ReactionContent!, $subjectId: ID!) {
	reaction: addReaction(input: { content: $content, subjectId: $subjectId }) {
		reaction { content }
	}
}`

// RemoveReactionMutation снимает реакцию.
const RemoveReactionMutation = `
mutation RemoveReaction($content: ReactionContent!, $subjectId: ID!) {
	reaction: removeReaction(input: { content: $content, subjectId: $subjectId }) {
		reaction { content }
	}
}`
