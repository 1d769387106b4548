package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/handler"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository/sqlite"
	"github.com/sakif/package-registry/internal/service"
)

// env wires real services over a fresh in-memory database.
type env struct {
	db        *sqlite.DB
	logger    *slog.Logger
	sessions  *auth.SessionService
	identity  *service.IdentityStore
	profile   *service.ProfileEditor
	downloads *service.DownloadAggregator
	follows   *service.FollowGraph
	feed      *service.FeedQuery
	tokens    *service.TokenAuthenticator
	logins    *service.LoginService

	users  *handler.UserHandler
	follow *handler.FollowHandler
	token  *handler.TokenHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions, err := auth.NewSessionService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &env{db: db, logger: logger, sessions: sessions}
	e.identity = service.NewIdentityStore(db, logger)
	e.profile = service.NewProfileEditor(db, logger)
	e.downloads = service.NewDownloadAggregator(db, db)
	e.follows = service.NewFollowGraph(db, db, logger)
	e.feed = service.NewFeedQuery(db, db, service.FeedOptions{}, logger)
	e.tokens = service.NewTokenAuthenticator(db, logger)
	e.logins = service.NewLoginService(e.identity, sessions, logger)

	e.users = handler.NewUserHandler(e.identity, e.profile, e.downloads, logger)
	e.follow = handler.NewFollowHandler(e.follows, e.feed, logger)
	e.token = handler.NewTokenHandler(e.tokens, logger)
	return e
}

// account reconciles a GitHub identity into an account.
func (e *env) account(t *testing.T, githubID int64, login string) *model.Account {
	t.Helper()
	a, err := e.identity.Reconcile(context.Background(), model.ProviderIdentity{GitHubID: githubID, Login: login})
	require.NoError(t, err)
	return a
}

// pkg creates a package owned by owner with the given download count and
// one version per entry in nums, one minute apart.
func (e *env) pkg(t *testing.T, name string, owner *model.Account, downloads int64, nums ...string) *model.Package {
	t.Helper()
	ctx := context.Background()
	p := &model.Package{Name: name}
	require.NoError(t, e.db.CreatePackage(ctx, p, owner.ID))
	if downloads > 0 {
		require.NoError(t, e.db.IncrementDownloads(ctx, p.ID, downloads))
	}
	at := time.Now().UTC().Add(-time.Hour)
	for _, num := range nums {
		at = at.Add(time.Minute)
		require.NoError(t, e.db.AddVersion(ctx, &model.Version{PackageID: p.ID, Number: num, CreatedAt: at}))
	}
	return p
}

func newRequest(method, target string, body any) *http.Request {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		buf, _ := json.Marshal(b)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// withParams sets chi URL parameters as name, value pairs.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// as marks the request as made by account (session login).
func as(r *http.Request, account *model.Account) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{AccountID: account.ID, Source: auth.SessionIdentity}))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

type errorBody struct {
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

func errorDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[errorBody](t, rec)
	require.NotEmpty(t, body.Errors)
	return body.Errors[0].Detail
}

type userBody struct {
	User struct {
		ID     string  `json:"id"`
		Login  string  `json:"login"`
		Email  *string `json:"email"`
		URL    string  `json:"url"`
		Avatar *string `json:"avatar"`
	} `json:"user"`
}
