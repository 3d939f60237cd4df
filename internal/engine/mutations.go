package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/mapping"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// AddComment публикует комментарий верхнего уровня. Если обсуждения ещё нет,
// сначала создаёт его (заголовок — term или "Comments for N", в strict-режиме
// тело несёт маркер с отпечатком term), перезагружает и публикует в новое.
// Частичный сбой (обсуждение создано, комментарий нет) не откатывается.
func (e *Engine) AddComment(ctx context.Context, body string) (*models.Comment, error) {
	const op = "engine/AddComment"

	lg := log.From(ctx).With("op", op)

	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%s: empty body: %w", op, models.ErrValidation)
	}

	snap := e.Snapshot()
	if snap.Key.Repo == "" {
		return nil, fmt.Errorf("%s: no key loaded: %w", op, models.ErrValidation)
	}

	var discussionID string
	switch d := snap.Discussion; {
	case d == nil:
		id, err := e.provider.CreateDiscussion(ctx, discussion.CreateDiscussionParams{
			RepositoryID: e.cfg.RepositoryID,
			CategoryID:   e.cfg.CategoryID,
			Title:        mapping.DiscussionTitle(snap.Key.Term, snap.Key.Number),
			Body:         mapping.DiscussionBody(snap.Key.Term, e.cfg.Strict),
		})
		if err != nil {
			return nil, fmt.Errorf("%s: create discussion: %w", op, err)
		}
		lg.Info("discussion_created", "discussion_id", id)

		if _, err := e.Refetch(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			lg.Warn("refetch_after_create_failed", "err", err.Error())
		}
		discussionID = id
	case d.Locked:
		return nil, fmt.Errorf("%s: discussion is locked: %w", op, models.ErrValidation)
	default:
		discussionID = d.ID
	}

	c, err := e.provider.AddComment(ctx, discussion.AddCommentParams{DiscussionID: discussionID, Body: body})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.mutate(discussionID, func(d *models.Discussion) *models.Discussion {
		return withComment(d, *c)
	})

	return c, nil
}

// AddReply публикует ответ на комментарий commentID и дописывает его локально.
func (e *Engine) AddReply(ctx context.Context, commentID, body string) (*models.Reply, error) {
	const op = "engine/AddReply"

	if strings.TrimSpace(body) == "" || commentID == "" {
		return nil, fmt.Errorf("%s: empty comment id or body: %w", op, models.ErrValidation)
	}

	d := e.Snapshot().Discussion
	if d == nil {
		return nil, fmt.Errorf("%s: no discussion: %w", op, models.ErrValidation)
	}
	if d.Locked {
		return nil, fmt.Errorf("%s: discussion is locked: %w", op, models.ErrValidation)
	}

	r, err := e.provider.AddReply(ctx, discussion.AddReplyParams{
		DiscussionID: d.ID,
		CommentID:    commentID,
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.mutate(d.ID, func(d *models.Discussion) *models.Discussion {
		return withReply(d, commentID, *r)
	})

	return r, nil
}

// ToggleDiscussionReaction переключает реакцию на самом обсуждении.
func (e *Engine) ToggleDiscussionReaction(ctx context.Context, reaction models.ReactionContent) error {
	if err := checkReaction("engine/ToggleDiscussionReaction", reaction); err != nil {
		return err
	}

	var (
		subject string
		prev    bool
	)

	applied := e.mutate("", func(d *models.Discussion) *models.Discussion {
		subject = d.ID

		nd := *d
		nd.ReactionGroups, prev = toggleGroups(d.ReactionGroups, reaction)
		return &nd
	})

	return e.sendToggle(ctx, "engine/ToggleDiscussionReaction", applied, subject, reaction, prev)
}

// ToggleCommentReaction переключает реакцию на комментарии commentID.
func (e *Engine) ToggleCommentReaction(ctx context.Context, commentID string, reaction models.ReactionContent) error {
	if err := checkReaction("engine/ToggleCommentReaction", reaction); err != nil {
		return err
	}

	var prev bool

	applied := e.mutate("", func(d *models.Discussion) *models.Discussion {
		return mapComment(d, commentID, func(c models.Comment) models.Comment {
			c.ReactionGroups, prev = toggleGroups(c.ReactionGroups, reaction)
			return c
		})
	})

	return e.sendToggle(ctx, "engine/ToggleCommentReaction", applied, commentID, reaction, prev)
}

// ToggleReplyReaction переключает реакцию на ответе replyID комментария commentID.
func (e *Engine) ToggleReplyReaction(ctx context.Context, commentID, replyID string, reaction models.ReactionContent) error {
	if err := checkReaction("engine/ToggleReplyReaction", reaction); err != nil {
		return err
	}

	var prev bool

	applied := e.mutate("", func(d *models.Discussion) *models.Discussion {
		found := false
		nd := mapComment(d, commentID, func(c models.Comment) models.Comment {
			for i, r := range c.Replies {
				if r.ID != replyID {
					continue
				}

				replies := make([]models.Reply, len(c.Replies))
				copy(replies, c.Replies)
				replies[i].ReactionGroups, prev = toggleGroups(r.ReactionGroups, reaction)
				c.Replies = replies
				found = true
				break
			}
			return c
		})
		if !found {
			return nil
		}
		return nd
	})

	return e.sendToggle(ctx, "engine/ToggleReplyReaction", applied, replyID, reaction, prev)
}

// sendToggle вызывает поставщика с состоянием ДО переключения. Оптимистичное
// изменение при ошибке не откатывается: его исправит следующая загрузка.
func (e *Engine) sendToggle(ctx context.Context, op string, applied bool, subject string, reaction models.ReactionContent, prev bool) error {
	if !applied {
		return fmt.Errorf("%s: subject %q not in snapshot: %w", op, subject, models.ErrValidation)
	}

	err := e.provider.ToggleReaction(ctx, discussion.ToggleReactionParams{
		SubjectID:        subject,
		Reaction:         reaction,
		ViewerHasReacted: prev,
	})
	if err != nil {
		log.From(ctx).Warn("toggle_reaction_failed", "op", op, "subject", subject, "err", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func checkReaction(op string, reaction models.ReactionContent) error {
	if !reaction.Valid() {
		return fmt.Errorf("%s: unknown reaction %q: %w", op, reaction, models.ErrValidation)
	}

	return nil
}

// toggleGroups переключает группу; отсутствующая группа добавляется с Count 1.
// prev — ViewerHasReacted до переключения.
func toggleGroups(g models.ReactionGroups, reaction models.ReactionContent) (models.ReactionGroups, bool) {
	if cur, ok := g.Find(reaction); ok {
		out, _ := g.Toggle(reaction)
		return out, cur.ViewerHasReacted
	}

	out := make(models.ReactionGroups, len(g), len(g)+1)
	copy(out, g)

	return append(out, models.ReactionGroup{Content: reaction, Count: 1, ViewerHasReacted: true}), false
}

// mapComment возвращает копию обсуждения, где комментарий id заменён fn(c);
// nil, если комментария нет. Остальные комментарии разделяются.
func mapComment(d *models.Discussion, id string, fn func(models.Comment) models.Comment) *models.Discussion {
	for i := range d.Comments {
		if d.Comments[i].ID != id {
			continue
		}

		comments := make([]models.Comment, len(d.Comments))
		copy(comments, d.Comments)
		comments[i] = fn(comments[i])

		nd := *d
		nd.Comments = comments
		return &nd
	}

	return nil
}

// withComment дописывает комментарий и увеличивает TotalCommentCount.
func withComment(d *models.Discussion, c models.Comment) *models.Discussion {
	if c.Replies == nil {
		c.Replies = []models.Reply{}
	}

	nd := *d
	n := len(d.Comments)
	nd.Comments = append(d.Comments[:n:n], c)
	nd.TotalCommentCount++

	return &nd
}

// withReply дописывает ответ родителю (ReplyCount+1) и увеличивает
// TotalReplyCount, даже если родитель не загружен.
func withReply(d *models.Discussion, commentID string, r models.Reply) *models.Discussion {
	nd := mapComment(d, commentID, func(c models.Comment) models.Comment {
		n := len(c.Replies)
		c.Replies = append(c.Replies[:n:n], r)
		c.ReplyCount++
		return c
	})
	if nd == nil {
		cp := *d
		nd = &cp
	}

	nd.TotalReplyCount++
	return nd
}

// appendPage дописывает следующую страницу, пропуская уже известные комментарии.
func appendPage(cur, page *models.Discussion) *models.Discussion {
	seen := make(map[string]struct{}, len(cur.Comments))
	for _, c := range cur.Comments {
		seen[c.ID] = struct{}{}
	}

	n := len(cur.Comments)
	comments := cur.Comments[:n:n]
	nd := *cur
	for _, c := range page.Comments {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		comments = append(comments, c)
		nd.TotalReplyCount += c.ReplyCount
	}

	nd.Comments = comments
	nd.TotalCommentCount = page.TotalCommentCount
	nd.PageInfo.EndCursor = page.PageInfo.EndCursor
	nd.PageInfo.HasNextPage = page.PageInfo.HasNextPage

	return &nd
}
