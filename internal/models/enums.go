package models

// ReactionContent — закрытое множество реакций.
type ReactionContent string

const (
	ReactionThumbsUp   ReactionContent = "THUMBS_UP"
	ReactionThumbsDown ReactionContent = "THUMBS_DOWN"
	ReactionLaugh      ReactionContent = "LAUGH"
	ReactionHooray     ReactionContent = "HOORAY"
	ReactionConfused   ReactionContent = "CONFUSED"
	ReactionHeart      ReactionContent = "HEART"
	ReactionRocket     ReactionContent = "ROCKET"
	ReactionEyes       ReactionContent = "EYES"
)

// Reactions — все реакции в порядке отображения.
var Reactions = []ReactionContent{
	ReactionThumbsUp,
	ReactionThumbsDown,
	ReactionLaugh,
	ReactionHooray,
	ReactionConfused,
	ReactionHeart,
	ReactionRocket,
	ReactionEyes,
}

var reactionEmoji = map[ReactionContent]string{
	ReactionThumbsUp:   "👍",
	ReactionThumbsDown: "👎",
	ReactionLaugh:      "😄",
	ReactionHooray:     "🎉",
	ReactionConfused:   "😕",
	ReactionHeart:      "❤️",
	ReactionRocket:     "🚀",
	ReactionEyes:       "👀",
}

// ParseReactionContent возвращает реакцию и false для неизвестного значения.
func ParseReactionContent(s string) (ReactionContent, bool) {
	rc := ReactionContent(s)
	if _, ok := reactionEmoji[rc]; !ok {
		return "", false
	}

	return rc, true
}

// Valid сообщает, входит ли значение в закрытое множество.
func (r ReactionContent) Valid() bool {
	_, ok := reactionEmoji[r]
	return ok
}

// Emoji — символ реакции (пусто для неизвестной).
func (r ReactionContent) Emoji() string { return reactionEmoji[r] }

// AuthorAssociation — связь автора с репозиторием.
type AuthorAssociation string

const (
	AssociationCollaborator         AuthorAssociation = "COLLABORATOR"
	AssociationContributor          AuthorAssociation = "CONTRIBUTOR"
	AssociationFirstTimer           AuthorAssociation = "FIRST_TIMER"
	AssociationFirstTimeContributor AuthorAssociation = "FIRST_TIME_CONTRIBUTOR"
	AssociationMannequin            AuthorAssociation = "MANNEQUIN"
	AssociationMember               AuthorAssociation = "MEMBER"
	AssociationNone                 AuthorAssociation = "NONE"
	AssociationOwner                AuthorAssociation = "OWNER"
)

// ParseAuthorAssociation сводит неизвестные значения к AssociationNone.
func ParseAuthorAssociation(s string) AuthorAssociation {
	switch a := AuthorAssociation(s); a {
	case AssociationCollaborator, AssociationContributor, AssociationFirstTimer,
		AssociationFirstTimeContributor, AssociationMannequin, AssociationMember,
		AssociationNone, AssociationOwner:
		return a
	default:
		return AssociationNone
	}
}
