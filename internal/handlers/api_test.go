package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melodeck/internal/testutil"
)

func TestAPISearchAll_RequiresQuery(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.GetJSON("/api/search/all")
	env.http.AssertErrorResponse(w, http.StatusBadRequest, "Query parameter is required")
	assert.Zero(t, env.upstream.Hits("/search/all"), "upstream is not called")
}

func TestAPISearchAll_PassesBodyThrough(t *testing.T) {
	env := newTestEnv(t)
	body := testutil.Envelope(map[string]any{"songs": testutil.Results(testutil.Songs(1))})
	env.upstream.OnJSON("/search/all", http.StatusOK, body)

	w := env.http.GetJSON("/api/search/all?query=rock")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, body, w.Body.String())

	queries := env.upstream.Queries("/search/all")
	require.Len(t, queries, 1)
	assert.Equal(t, "rock", queries[0].Get("query"))
}

func TestAPISearchCategory_Paging(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantPage  string
		wantLimit string
	}{
		{"defaults", "/api/search/songs?query=love", "1", "20"},
		{"explicit", "/api/search/songs?query=love&page=3&limit=5", "3", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.upstream.OnJSON("/search/songs", http.StatusOK, testutil.Envelope(testutil.Results(nil)))

			w := env.http.GetJSON(tt.target)
			require.Equal(t, http.StatusOK, w.Code)

			q := env.upstream.Queries("/search/songs")[0]
			assert.Equal(t, "love", q.Get("query"))
			assert.Equal(t, tt.wantPage, q.Get("page"))
			assert.Equal(t, tt.wantLimit, q.Get("limit"))
		})
	}
}

func TestAPISearch_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	w := env.http.GetJSON("/api/search/podcasts?query=x")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_UpstreamFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.OnJSON("/trending", http.StatusInternalServerError, `{"error":"boom"}`)

	w := env.http.GetJSON("/api/trending")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]any
	env.http.AssertJSONResponse(w, http.StatusBadGateway, &resp)
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error"])
}

func TestAPI_DetailRoutes(t *testing.T) {
	tests := []struct {
		route    string
		upstream string
	}{
		{"/api/songs/s1", "/songs/s1"},
		{"/api/albums/a1", "/albums/a1"},
		{"/api/artists/ar1", "/artists/ar1"},
		{"/api/playlists/p1", "/playlists/p1"},
		{"/api/lyrics/s1", "/songs/s1/lyrics"},
		{"/api/modules", "/modules"},
		{"/api/charts", "/charts"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			env := newTestEnv(t)
			body := testutil.Envelope(map[string]any{"id": "x"})
			env.upstream.OnJSON(tt.upstream, http.StatusOK, body)

			w := env.http.GetJSON(tt.route)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, body, w.Body.String())
			assert.Equal(t, 1, env.upstream.Hits(tt.upstream))
		})
	}
}

func TestAPI_UnsuccessfulEnvelopePassesThrough(t *testing.T) {
	env := newTestEnv(t)
	body := testutil.FailedEnvelope("no such song")
	env.upstream.OnJSON("/songs/missing", http.StatusOK, body)

	w := env.http.GetJSON("/api/songs/missing")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, body, w.Body.String())
}
