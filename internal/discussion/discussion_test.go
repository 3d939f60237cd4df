package discussion_test

// Тесты поставщика обсуждений.
//
// Покрытие:
//  - выбор стратегии на каждый вызов: токен -> Direct (GraphQL), нет токена -> Proxy;
//  - мутации без токена -> models.ErrAuthenticationRequired без сетевых вызовов;
//  - ToggleReaction: viewerHasReacted=true -> removeReaction, иначе addReaction;
//  - Direct: поиск по номеру и по term (strict-запрос), пустой поиск -> nil discussion;
//  - Proxy: query-параметры, strict=1, не-200 -> ошибка с классом по статусу;
//  - валидация параметров.
//
// Моки: mockgen -source=provider.go -destination=mocks/provider.go -package=mocks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/discussion/mocks"
	"github.com/pribylovaa/agora/internal/github"
	"github.com/pribylovaa/agora/internal/mapping"
	"github.com/pribylovaa/agora/internal/models"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeGraphQL поднимает GraphQL endpoint и запоминает последний запрос.
type fakeGraphQL struct {
	srv   *httptest.Server
	calls atomic.Int32
	last  atomic.Pointer[gqlRequest]
	auth  atomic.Value
}

func newFakeGraphQL(t *testing.T, respond func(req gqlRequest) string) *fakeGraphQL {
	t.Helper()

	f := &fakeGraphQL{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.calls.Add(1)
		f.last.Store(&req)
		f.auth.Store(r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(respond(req)))
	}))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeGraphQL) client() *github.Client { return github.NewClient(f.srv.URL, f.srv.Client()) }

const discussionByNumberResp = `{"data":{
	"viewer":{"avatarUrl":"a","login":"alice","url":"u"},
	"repository":{"discussion":{"id":"D_1","url":"https://github.com/o/r/discussions/7","locked":false,
		"repository":{"nameWithOwner":"o/r"},"reactionGroups":[],
		"comments":{"totalCount":0,"pageInfo":{"hasNextPage":false,"hasPreviousPage":false},"nodes":[]}}}}}`

func staticTokens(t *testing.T, token string) discussion.TokenSource {
	t.Helper()

	ctrl := gomock.NewController(t)
	ts := mocks.NewMockTokenSource(ctrl)
	ts.EXPECT().Token(gomock.Any()).Return(token, nil).AnyTimes()
	return ts
}

func TestGitHub_GetDiscussion_DirectWhenToken(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string { return discussionByNumberResp })

	ctrl := gomock.NewController(t)
	proxy := mocks.NewMockSource(ctrl) // не должен вызываться

	p := discussion.NewGitHub(gql.client(), proxy, staticTokens(t, "user-token"))

	res, err := p.GetDiscussion(context.Background(), discussion.GetDiscussionParams{
		Repo: "o/r", Number: 7, First: 20,
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer user-token", gql.auth.Load())
	require.NotNil(t, res.Viewer)
	require.Equal(t, "alice", res.Viewer.Login)
	require.NotNil(t, res.Discussion)
	require.Equal(t, "D_1", res.Discussion.ID)

	last := gql.last.Load()
	require.Contains(t, last.Query, "discussion(number: $number)")
	require.EqualValues(t, 7, last.Variables["number"])
	require.EqualValues(t, 20, last.Variables["first"])
	require.Equal(t, "o", last.Variables["owner"])
}

func TestGitHub_GetDiscussion_ProxyWhenAnonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	proxy := mocks.NewMockSource(ctrl)

	params := discussion.GetDiscussionParams{Repo: "o/r", Term: "/post"}
	want := &models.DiscussionResult{}
	proxy.EXPECT().Discussion(gomock.Any(), params).Return(want, nil)

	p := discussion.NewGitHub(github.NewClient("http://127.0.0.1:1", nil), proxy, staticTokens(t, ""))

	got, err := p.GetDiscussion(context.Background(), params)
	require.NoError(t, err)
	require.Same(t, want, got)
}

func TestGitHub_StrategyChosenPerCall(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string { return discussionByNumberResp })

	ctrl := gomock.NewController(t)
	proxy := mocks.NewMockSource(ctrl)
	ts := mocks.NewMockTokenSource(ctrl)

	params := discussion.GetDiscussionParams{Repo: "o/r", Number: 7}

	gomock.InOrder(
		ts.EXPECT().Token(gomock.Any()).Return("", nil),
		ts.EXPECT().Token(gomock.Any()).Return("fresh-token", nil),
	)
	proxy.EXPECT().Discussion(gomock.Any(), params).Return(&models.DiscussionResult{}, nil).Times(1)

	p := discussion.NewGitHub(gql.client(), proxy, ts)

	_, err := p.GetDiscussion(context.Background(), params)
	require.NoError(t, err)
	require.EqualValues(t, 0, gql.calls.Load())

	_, err = p.GetDiscussion(context.Background(), params)
	require.NoError(t, err)
	require.EqualValues(t, 1, gql.calls.Load())
}

func TestGitHub_MutationsRequireToken(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string { return `{"data":{}}` })
	p := discussion.NewGitHub(gql.client(), nil, staticTokens(t, ""))
	ctx := context.Background()

	_, err := p.CreateDiscussion(ctx, discussion.CreateDiscussionParams{RepositoryID: "R", CategoryID: "C", Title: "t", Body: "b"})
	require.ErrorIs(t, err, models.ErrAuthenticationRequired)

	_, err = p.AddComment(ctx, discussion.AddCommentParams{DiscussionID: "D", Body: "hi"})
	require.ErrorIs(t, err, models.ErrAuthenticationRequired)

	_, err = p.AddReply(ctx, discussion.AddReplyParams{DiscussionID: "D", CommentID: "C", Body: "hi"})
	require.ErrorIs(t, err, models.ErrAuthenticationRequired)

	err = p.ToggleReaction(ctx, discussion.ToggleReactionParams{SubjectID: "S", Reaction: models.ReactionHeart})
	require.ErrorIs(t, err, models.ErrAuthenticationRequired)

	// без прокси и без токена анонимное чтение тоже недоступно
	_, err = p.GetDiscussion(ctx, discussion.GetDiscussionParams{Repo: "o/r", Term: "x"})
	require.ErrorIs(t, err, models.ErrAuthenticationRequired)

	require.EqualValues(t, 0, gql.calls.Load())
}

func TestGitHub_ToggleReaction_ChoosesMutation(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string {
		return `{"data":{"reaction":{"reaction":{"content":"HEART"}}}}`
	})
	p := discussion.NewGitHub(gql.client(), nil, staticTokens(t, "tok"))
	ctx := context.Background()

	err := p.ToggleReaction(ctx, discussion.ToggleReactionParams{SubjectID: "S", Reaction: models.ReactionHeart, ViewerHasReacted: true})
	require.NoError(t, err)
	require.Contains(t, gql.last.Load().Query, "removeReaction")
	require.Equal(t, "HEART", gql.last.Load().Variables["content"])
	require.Equal(t, "S", gql.last.Load().Variables["subjectId"])

	err = p.ToggleReaction(ctx, discussion.ToggleReactionParams{SubjectID: "S", Reaction: models.ReactionHeart, ViewerHasReacted: false})
	require.NoError(t, err)
	require.Contains(t, gql.last.Load().Query, "addReaction")

	err = p.ToggleReaction(ctx, discussion.ToggleReactionParams{SubjectID: "S", Reaction: "PARTY_PARROT"})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestDirect_SearchByTerm(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string {
		return `{"data":{"viewer":null,"search":{"discussionCount":0,"nodes":[]}}}`
	})
	d := discussion.NewDirect(gql.client(), "server-token")

	res, err := d.Discussion(context.Background(), discussion.GetDiscussionParams{
		Repo: "o/r", Term: "/posts/hello", Category: "General", Strict: true, Last: 20,
	})
	require.NoError(t, err)
	require.Nil(t, res.Discussion)
	require.Nil(t, res.Viewer)

	last := gql.last.Load()
	require.Contains(t, last.Query, "search(type: DISCUSSION, last: 1")
	require.Equal(t, mapping.BuildSearchQuery("o/r", "General", "/posts/hello", true), last.Variables["query"])
	require.EqualValues(t, 20, last.Variables["last"])
}

func TestDirect_AddReply(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string {
		return `{"data":{"addDiscussionComment":{"comment":{"id":"R_9","author":null,"createdAt":"2026-01-01T00:00:00Z","authorAssociation":"OWNER","reactionGroups":[],"replyTo":{"id":"C_1"}}}}}`
	})
	d := discussion.NewDirect(gql.client(), "tok")

	r, err := d.AddReply(context.Background(), discussion.AddReplyParams{DiscussionID: "D_1", CommentID: "C_1", Body: "thanks"})
	require.NoError(t, err)
	require.Equal(t, "R_9", r.ID)
	require.Equal(t, "C_1", *r.ReplyToID)
	require.Equal(t, models.DeletedUser, r.Author)

	vars := gql.last.Load().Variables
	require.Equal(t, "C_1", vars["replyToId"])
	require.Equal(t, "D_1", vars["discussionId"])
}

func TestDirect_Categories_NotFound(t *testing.T) {
	gql := newFakeGraphQL(t, func(gqlRequest) string { return `{"data":{"repository":null}}` })
	d := discussion.NewDirect(gql.client(), "tok")

	_, err := d.Categories(context.Background(), "o/missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestProxy_Discussion(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/discussions", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"viewer":null,"discussion":{"id":"D_1","comments":[],"reactionGroups":[]}}`))
	}))
	t.Cleanup(srv.Close)

	p := discussion.NewProxy(srv.URL+"/", srv.Client())

	res, err := p.Discussion(context.Background(), discussion.GetDiscussionParams{
		Repo: "o/r", Term: "/post", Category: "General", Strict: true, First: 20,
	})
	require.NoError(t, err)
	require.Equal(t, "D_1", res.Discussion.ID)

	require.Contains(t, gotQuery, "strict=1")
	require.Contains(t, gotQuery, "repo=o%2Fr")
	require.Contains(t, gotQuery, "term=%2Fpost")
	require.Contains(t, gotQuery, "first=20")
	require.NotContains(t, gotQuery, "number=")
}

func TestProxy_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusBadGateway
		if strings.HasSuffix(r.URL.Path, "/categories") {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"upstream","message":"upstream failure"}}`))
	}))
	t.Cleanup(srv.Close)

	p := discussion.NewProxy(srv.URL, srv.Client())

	_, err := p.Discussion(context.Background(), discussion.GetDiscussionParams{Repo: "o/r", Number: 1})
	require.ErrorIs(t, err, models.ErrUpstream)

	_, err = p.Categories(context.Background(), "o/r")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetDiscussionParams_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    discussion.GetDiscussionParams
		ok   bool
	}{
		{"number", discussion.GetDiscussionParams{Repo: "o/r", Number: 1}, true},
		{"term", discussion.GetDiscussionParams{Repo: "o/r", Term: "x"}, true},
		{"neither", discussion.GetDiscussionParams{Repo: "o/r"}, false},
		{"no_repo", discussion.GetDiscussionParams{Term: "x"}, false},
		{"bad_repo", discussion.GetDiscussionParams{Repo: "o/r/x", Term: "x"}, false},
		{"no_owner", discussion.GetDiscussionParams{Repo: "/r", Term: "x"}, false},
		{"negative", discussion.GetDiscussionParams{Repo: "o/r", Number: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := discussion.New("github", discussion.Options{Client: github.NewClient("", nil)})
	require.NoError(t, err)
	require.Equal(t, "github", p.Name())

	_, err = discussion.New("gitlab", discussion.Options{Client: github.NewClient("", nil)})
	require.ErrorIs(t, err, models.ErrConfiguration)
}
