package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	authproviders "github.com/mskovgaard/warboard/pkg/auth/providers"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/repositories"
	"github.com/mskovgaard/warboard/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	handler http.Handler
	store   *store.InMemoryStore
	ops     *game.Operations
	repo    repositories.Repository
}

func newAPIFixture(t *testing.T, repo repositories.Repository) *apiFixture {
	t.Helper()

	memStore := store.NewInMemoryStore(clockwork.NewRealClock())
	ops := game.NewOperations(game.NewOperationsOptions{
		Store: memStore,
		Clock: clockwork.NewRealClock(),
	})
	server := NewAPIServer(NewAPIServerOptions{
		AuthProvider: authproviders.NewLocalAuthProvider(),
		Repository:   repo,
		Store:        memStore,
		Operations:   ops,
	})
	return &apiFixture{
		handler: server.Handler(),
		store:   memStore,
		ops:     ops,
		repo:    repo,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIServer_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/games", "", url.Values{"title": {"my game"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIServer_CreateAndCheckGame(t *testing.T) {
	f := newAPIFixture(t, nil)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/games", "alice:Alice", url.Values{"title": {"my game"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.ID, 8)

	// The auth middleware upserted the caller's profile document.
	value, err := f.store.Once(ctx, types.UserKey("alice"))
	require.NoError(t, err)
	user := &types.User{}
	require.NoError(t, json.Unmarshal(value, user))
	assert.Equal(t, "Alice", user.Name)

	rec = f.do(t, http.MethodGet, "/games/"+created.ID, "bob:Bob", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/games/nope1234", "bob:Bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIServer_CreateGame_BadTitle(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/games", "alice:Alice", url.Values{"title": {""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIServer_ChangeTitle_CreatorOnly(t *testing.T) {
	f := newAPIFixture(t, nil)
	ctx := context.Background()

	gameID, err := f.ops.CreateGame(ctx, "alice", "my game")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPut, "/games/"+gameID+"/title", "bob:Bob", url.Values{"title": {"stolen"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPut, "/games/"+gameID+"/title", "alice:Alice", url.Values{"title": {"renamed"}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	g, err := f.ops.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", g.Title)
}

func TestAPIServer_DeleteGame(t *testing.T) {
	f := newAPIFixture(t, nil)
	ctx := context.Background()

	gameID, err := f.ops.CreateGame(ctx, "alice", "my game")
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/games/"+gameID, "bob:Bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/games/"+gameID, "alice:Alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	g, err := f.ops.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.Nil(t, g)

	rec = f.do(t, http.MethodDelete, "/games/"+gameID, "alice:Alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIServer_ListGames(t *testing.T) {
	repo, err := repositories.NewSQLiteRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(context.Background()) })
	f := newAPIFixture(t, repo)
	ctx := context.Background()

	for _, g := range []*types.Game{
		{ID: "g1", Title: "alpha", Creator: "alice"},
		{ID: "g2", Title: "beta", Creator: "bob"},
	} {
		require.NoError(t, repo.SaveDocument(ctx, types.GameKey(g.ID), store.Encode(g)))
	}

	rec := f.do(t, http.MethodGet, "/games", "alice:Alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "g1", list[0].ID)
}
