package engine

// Тесты движка синхронизации (internal/engine).
//
// Покрытие:
//  - Load: first/last по порядку, no-op для того же ключа, NotFound/HasMore/NumHidden;
//  - устаревший ответ отбрасывается при смене ключа (ErrSuperseded);
//  - ошибка перезагрузки сохраняет прежнее обсуждение;
//  - AddComment в существующее обсуждение и с созданием обсуждения (порядок вызовов);
//  - AddReply: ответ родителю, replyCount/totalReplyCount, разделение неизменённых частей;
//  - реакции: оптимистичное обновление видно до ответа сервера, поставщик получает
//    состояние ДО переключения, ошибка не откатывает снимок;
//  - LoadMore, Subscribe.
//
// Моки: mockgen -source=internal/discussion/provider.go -destination=internal/discussion/mocks/provider.go -package=mocks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/discussion/mocks"
	"github.com/pribylovaa/agora/internal/mapping"
	"github.com/pribylovaa/agora/internal/models"
)

var testCfg = Config{RepositoryID: "R_1", CategoryID: "DIC_1", Category: "General", Strict: false}

func newEngine(t *testing.T, cfg Config) (*Engine, *mocks.MockProvider) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mp := mocks.NewMockProvider(ctrl)
	return New(mp, cfg), mp
}

func strp(s string) *string { return &s }

func reply(id, parent string) models.Reply {
	return models.Reply{
		ID:             id,
		Author:         models.User{Login: "bob"},
		ReplyToID:      strp(parent),
		ReactionGroups: models.ReactionGroups{{Content: models.ReactionHeart, Count: 0}},
	}
}

func comment(id string, replies ...models.Reply) models.Comment {
	if replies == nil {
		replies = []models.Reply{}
	}

	return models.Comment{
		ID:     id,
		Author: models.User{Login: "alice"},
		ReactionGroups: models.ReactionGroups{
			{Content: models.ReactionThumbsUp, Count: 1, ViewerHasReacted: false},
			{Content: models.ReactionHeart, Count: 3, ViewerHasReacted: false},
		},
		Replies:    replies,
		ReplyCount: len(replies),
	}
}

func sampleDiscussion() *models.Discussion {
	c1 := comment("C_1", reply("R_1", "C_1"))
	c2 := comment("C_2", reply("R_2", "C_2"), reply("R_3", "C_2"))

	return &models.Discussion{
		ID:                "D_1",
		URL:               "https://github.com/o/r/discussions/1",
		RepoNameWithOwner: "o/r",
		ReactionGroups:    models.ReactionGroups{{Content: models.ReactionRocket, Count: 2, ViewerHasReacted: true}},
		TotalCommentCount: 5,
		TotalReplyCount:   3,
		Comments:          []models.Comment{c1, c2},
		PageInfo:          models.PageInfo{EndCursor: strp("cur-2"), HasNextPage: true},
	}
}

var key = Key{Repo: "o/r", Term: "/posts/hello", Order: OrderOldest}

func loaded(t *testing.T, d *models.Discussion) (*Engine, *mocks.MockProvider) {
	t.Helper()

	e, mp := newEngine(t, testCfg)
	mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).
		Return(&models.DiscussionResult{Viewer: &models.User{Login: "alice"}, Discussion: d}, nil)

	_, err := e.Load(context.Background(), key)
	require.NoError(t, err)
	return e, mp
}

func TestLoad_ParamsByOrder(t *testing.T) {
	e, mp := newEngine(t, testCfg)
	ctx := context.Background()

	gomock.InOrder(
		mp.EXPECT().GetDiscussion(gomock.Any(), discussion.GetDiscussionParams{
			Repo: "o/r", Term: "/posts/hello", Category: "General", First: DefaultPageSize,
		}).Return(&models.DiscussionResult{Discussion: sampleDiscussion()}, nil),
		mp.EXPECT().GetDiscussion(gomock.Any(), discussion.GetDiscussionParams{
			Repo: "o/r", Term: "/posts/hello", Category: "General", Last: DefaultPageSize,
		}).Return(&models.DiscussionResult{Discussion: sampleDiscussion()}, nil),
	)

	s, err := e.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, s.Loaded)
	require.False(t, s.Loading)
	require.True(t, s.HasMore())
	require.Equal(t, 3, s.NumHidden())
	require.False(t, s.NotFound())

	newest := key
	newest.Order = OrderNewest
	_, err = e.Load(ctx, newest)
	require.NoError(t, err)
}

func TestLoad_SameKeyIsNoop(t *testing.T) {
	e, _ := loaded(t, sampleDiscussion())

	before := e.Snapshot()
	s, err := e.Load(context.Background(), key)
	require.NoError(t, err)
	require.Same(t, before, s)
}

func TestLoad_NotFound(t *testing.T) {
	e, _ := loaded(t, nil)

	s := e.Snapshot()
	require.True(t, s.NotFound())
	require.False(t, s.HasMore())
	require.Equal(t, 0, s.NumHidden())

	_, ok := s.Metadata()
	require.False(t, ok)
}

func TestLoad_SupersededResponseDropped(t *testing.T) {
	e, mp := newEngine(t, testCfg)
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{})

	slow := sampleDiscussion()
	slow.ID = "D_SLOW"
	fast := sampleDiscussion()
	fast.ID = "D_FAST"

	mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, discussion.GetDiscussionParams) (*models.DiscussionResult, error) {
			close(entered)
			<-release
			return &models.DiscussionResult{Discussion: slow}, nil
		})
	mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).
		Return(&models.DiscussionResult{Discussion: fast}, nil)

	var (
		wg      sync.WaitGroup
		slowErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = e.Load(ctx, key)
	}()

	<-entered
	other := Key{Repo: "o/r", Term: "/posts/other", Order: OrderOldest}
	_, err := e.Load(ctx, other)
	require.NoError(t, err)

	close(release)
	wg.Wait()

	require.ErrorIs(t, slowErr, ErrSuperseded)
	s := e.Snapshot()
	require.Equal(t, other, s.Key)
	require.Equal(t, "D_FAST", s.Discussion.ID)
}

func TestRefetch_ErrorKeepsDiscussion(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())

	boom := errors.Join(models.ErrUpstream, errors.New("boom"))
	mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).Return(nil, boom)

	s, err := e.Refetch(context.Background())
	require.ErrorIs(t, err, models.ErrUpstream)
	require.NotNil(t, s.Discussion)
	require.Equal(t, "D_1", s.Discussion.ID)
	require.ErrorIs(t, s.Err, models.ErrUpstream)
	require.False(t, s.NotFound())
}

func TestAddComment_Existing(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())
	before := e.Snapshot()

	newC := comment("C_NEW")
	newC.Replies = nil
	mp.EXPECT().AddComment(gomock.Any(), discussion.AddCommentParams{DiscussionID: "D_1", Body: "hello"}).
		Return(&newC, nil)

	got, err := e.AddComment(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "C_NEW", got.ID)

	after := e.Snapshot()
	require.Equal(t, 6, after.Discussion.TotalCommentCount)
	require.Len(t, after.Discussion.Comments, 3)
	last := after.Discussion.Comments[2]
	require.Equal(t, "C_NEW", last.ID)
	require.Equal(t, 0, last.ReplyCount)
	require.NotNil(t, last.Replies)

	// прежний снимок не изменился
	require.Equal(t, 5, before.Discussion.TotalCommentCount)
	require.Len(t, before.Discussion.Comments, 2)
}

func TestAddComment_CreatesDiscussionFirst(t *testing.T) {
	cfg := testCfg
	cfg.Strict = true
	e, mp := newEngine(t, cfg)
	ctx := context.Background()

	created := sampleDiscussion()
	created.ID = "D_NEW"
	created.Comments = []models.Comment{}
	created.TotalCommentCount = 0
	created.TotalReplyCount = 0
	newC := comment("C_FIRST")

	gomock.InOrder(
		mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).
			Return(&models.DiscussionResult{}, nil),
		mp.EXPECT().CreateDiscussion(gomock.Any(), discussion.CreateDiscussionParams{
			RepositoryID: "R_1",
			CategoryID:   "DIC_1",
			Title:        "/posts/hello",
			Body:         mapping.DiscussionBody("/posts/hello", true),
		}).Return("D_NEW", nil),
		mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).
			Return(&models.DiscussionResult{Discussion: created}, nil),
		mp.EXPECT().AddComment(gomock.Any(), discussion.AddCommentParams{DiscussionID: "D_NEW", Body: "first!"}).
			Return(&newC, nil),
	)

	s, err := e.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, s.NotFound())

	got, err := e.AddComment(ctx, "first!")
	require.NoError(t, err)
	require.Equal(t, 0, got.ReplyCount)

	after := e.Snapshot()
	require.Equal(t, "D_NEW", after.Discussion.ID)
	require.Equal(t, 1, after.Discussion.TotalCommentCount)
	require.Len(t, after.Discussion.Comments, 1)
	require.Equal(t, "C_FIRST", after.Discussion.Comments[0].ID)
	require.Equal(t, 0, after.Discussion.Comments[0].ReplyCount)
	require.Empty(t, after.Discussion.Comments[0].Replies)
}

func TestAddComment_TitleForNumber(t *testing.T) {
	e, mp := newEngine(t, testCfg)
	ctx := context.Background()

	mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).Return(&models.DiscussionResult{}, nil).Times(2)
	mp.EXPECT().CreateDiscussion(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p discussion.CreateDiscussionParams) (string, error) {
			require.Equal(t, "Comments for 42", p.Title)
			require.Equal(t, "Comments for this page.", p.Body)
			return "D_42", nil
		})
	c := comment("C_1")
	mp.EXPECT().AddComment(gomock.Any(), discussion.AddCommentParams{DiscussionID: "D_42", Body: "x"}).Return(&c, nil)

	_, err := e.Load(ctx, Key{Repo: "o/r", Number: 42})
	require.NoError(t, err)

	_, err = e.AddComment(ctx, "x")
	require.NoError(t, err)
}

func TestAddComment_Validation(t *testing.T) {
	e, _ := loaded(t, sampleDiscussion())

	_, err := e.AddComment(context.Background(), "   ")
	require.ErrorIs(t, err, models.ErrValidation)

	locked := sampleDiscussion()
	locked.Locked = true
	e2, _ := loaded(t, locked)
	_, err = e2.AddComment(context.Background(), "hi")
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestAddComment_AuthRequiredPropagates(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())

	mp.EXPECT().AddComment(gomock.Any(), gomock.Any()).Return(nil, models.ErrAuthenticationRequired)

	_, err := e.AddComment(context.Background(), "hi")
	require.ErrorIs(t, err, models.ErrAuthenticationRequired)
	require.Equal(t, 5, e.Snapshot().Discussion.TotalCommentCount)
}

func TestAddReply(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())
	before := e.Snapshot()

	r := reply("R_NEW", "C_1")
	mp.EXPECT().AddReply(gomock.Any(), discussion.AddReplyParams{DiscussionID: "D_1", CommentID: "C_1", Body: "thanks"}).
		Return(&r, nil)

	_, err := e.AddReply(context.Background(), "C_1", "thanks")
	require.NoError(t, err)

	after := e.Snapshot()
	require.Equal(t, 4, after.Discussion.TotalReplyCount)

	c1 := after.Discussion.Comments[0]
	require.Equal(t, 2, c1.ReplyCount)
	require.Equal(t, []string{"R_1", "R_NEW"}, []string{c1.Replies[0].ID, c1.Replies[1].ID})

	// прежний снимок цел, нетронутый комментарий разделяется
	require.Len(t, before.Discussion.Comments[0].Replies, 1)
	require.Same(t, &before.Discussion.Comments[1].Replies[0], &after.Discussion.Comments[1].Replies[0])
}

func TestToggleCommentReaction_OptimisticBeforeRemote(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())

	entered := make(chan struct{})
	release := make(chan struct{})
	mp.EXPECT().ToggleReaction(gomock.Any(), discussion.ToggleReactionParams{
		SubjectID: "C_1", Reaction: models.ReactionHeart, ViewerHasReacted: false,
	}).DoAndReturn(func(context.Context, discussion.ToggleReactionParams) error {
		close(entered)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- e.ToggleCommentReaction(context.Background(), "C_1", models.ReactionHeart) }()

	<-entered
	c, ok := e.Snapshot().Comment("C_1")
	require.True(t, ok)
	heart, _ := c.ReactionGroups.Find(models.ReactionHeart)
	require.Equal(t, models.ReactionGroup{Content: models.ReactionHeart, Count: 4, ViewerHasReacted: true}, heart)

	close(release)
	require.NoError(t, <-done)
}

func TestToggleReaction_FailureIsSticky(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())

	mp.EXPECT().ToggleReaction(gomock.Any(), discussion.ToggleReactionParams{
		SubjectID: "D_1", Reaction: models.ReactionRocket, ViewerHasReacted: true,
	}).Return(models.ErrUpstream)

	err := e.ToggleDiscussionReaction(context.Background(), models.ReactionRocket)
	require.ErrorIs(t, err, models.ErrUpstream)

	rocket, _ := e.Snapshot().Discussion.ReactionGroups.Find(models.ReactionRocket)
	require.Equal(t, 1, rocket.Count)
	require.False(t, rocket.ViewerHasReacted)

	md, ok := e.Snapshot().Metadata()
	require.True(t, ok)
	require.Equal(t, 1, md.ReactionCount)
}

func TestToggleReplyReaction(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())
	before := e.Snapshot()

	mp.EXPECT().ToggleReaction(gomock.Any(), discussion.ToggleReactionParams{
		SubjectID: "R_3", Reaction: models.ReactionHeart, ViewerHasReacted: false,
	}).Return(nil)

	require.NoError(t, e.ToggleReplyReaction(context.Background(), "C_2", "R_3", models.ReactionHeart))

	c2, _ := e.Snapshot().Comment("C_2")
	heart, _ := c2.Replies[1].ReactionGroups.Find(models.ReactionHeart)
	require.Equal(t, 1, heart.Count)
	require.True(t, heart.ViewerHasReacted)

	oldC2, _ := before.Comment("C_2")
	oldHeart, _ := oldC2.Replies[1].ReactionGroups.Find(models.ReactionHeart)
	require.Equal(t, 0, oldHeart.Count)
}

func TestToggleReaction_MissingGroupAdded(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())

	mp.EXPECT().ToggleReaction(gomock.Any(), discussion.ToggleReactionParams{
		SubjectID: "C_1", Reaction: models.ReactionEyes, ViewerHasReacted: false,
	}).Return(nil)

	require.NoError(t, e.ToggleCommentReaction(context.Background(), "C_1", models.ReactionEyes))

	c, _ := e.Snapshot().Comment("C_1")
	eyes, ok := c.ReactionGroups.Find(models.ReactionEyes)
	require.True(t, ok)
	require.Equal(t, 1, eyes.Count)
}

func TestToggleReaction_UnknownSubjectOrReaction(t *testing.T) {
	e, _ := loaded(t, sampleDiscussion())
	ctx := context.Background()

	require.ErrorIs(t, e.ToggleCommentReaction(ctx, "C_404", models.ReactionHeart), models.ErrValidation)
	require.ErrorIs(t, e.ToggleReplyReaction(ctx, "C_1", "R_404", models.ReactionHeart), models.ErrValidation)
	require.ErrorIs(t, e.ToggleDiscussionReaction(ctx, "PARTY_PARROT"), models.ErrValidation)
}

func TestLoadMore(t *testing.T) {
	e, mp := loaded(t, sampleDiscussion())

	page := sampleDiscussion()
	page.Comments = []models.Comment{comment("C_2"), comment("C_3", reply("R_9", "C_3"))}
	page.PageInfo = models.PageInfo{EndCursor: strp("cur-4"), HasNextPage: false}

	mp.EXPECT().GetDiscussion(gomock.Any(), discussion.GetDiscussionParams{
		Repo: "o/r", Term: "/posts/hello", Category: "General", First: DefaultPageSize, After: "cur-2",
	}).Return(&models.DiscussionResult{Discussion: page}, nil)

	s, err := e.LoadMore(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Discussion.Comments, 3)
	require.Equal(t, "C_3", s.Discussion.Comments[2].ID)
	require.Equal(t, 4, s.Discussion.TotalReplyCount)
	require.False(t, s.HasMore())

	// следующей страницы нет — no-op без вызова поставщика
	s2, err := e.LoadMore(context.Background())
	require.NoError(t, err)
	require.Same(t, s, s2)
}

func TestSubscribe(t *testing.T) {
	e, mp := newEngine(t, testCfg)

	var (
		mu   sync.Mutex
		seen []*Snapshot
	)
	cancel := e.Subscribe(func(s *Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	mp.EXPECT().GetDiscussion(gomock.Any(), gomock.Any()).
		Return(&models.DiscussionResult{Discussion: sampleDiscussion()}, nil)

	_, err := e.Load(context.Background(), key)
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, seen, 2)
	require.True(t, seen[0].Loading)
	require.True(t, seen[1].Loaded)
	mu.Unlock()

	cancel()
	mp.EXPECT().ToggleReaction(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, e.ToggleDiscussionReaction(context.Background(), models.ReactionRocket))

	mu.Lock()
	require.Len(t, seen, 2)
	mu.Unlock()
}
