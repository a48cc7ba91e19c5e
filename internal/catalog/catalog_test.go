package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melodeck/internal/cache"
	"melodeck/internal/config"
	"melodeck/internal/models"
	"melodeck/internal/testutil"
)

func testConfig(baseURL string) *config.CatalogConfig {
	return &config.CatalogConfig{
		APIURL:       baseURL,
		Timeout:      2 * time.Second,
		AuthMethod:   config.AuthMethodNone,
		APIKeyHeader: "X-API-Key",
	}
}

func TestClient_Fetch(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()
	server.OnJSON("/modules", http.StatusOK, testutil.Envelope(map[string]any{"albums": testutil.Albums(2)}))

	client := NewClient(testConfig(server.URL()), nil)
	body, err := client.Fetch(context.Background(), EndpointModules, nil)
	require.NoError(t, err)
	assert.Contains(t, string(body), "album-1")
}

func TestClient_Fetch_PassesQuery(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()
	server.OnJSON("/search/songs", http.StatusOK, testutil.Envelope(testutil.Results(nil)))

	client := NewClient(testConfig(server.URL()), nil)
	_, err := client.Fetch(context.Background(), "/search/songs", url.Values{"query": {"rock & roll"}, "page": {"2"}})
	require.NoError(t, err)

	queries := server.Queries("/search/songs")
	require.Len(t, queries, 1)
	assert.Equal(t, "rock & roll", queries[0].Get("query"))
	assert.Equal(t, "2", queries[0].Get("page"))
}

func TestClient_Fetch_Errors(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()
	server.OnJSON("/broken", http.StatusInternalServerError, `{"error":"boom"}`)

	client := NewClient(testConfig(server.URL()), nil)

	_, err := client.Fetch(context.Background(), "/broken", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "/broken", apiErr.Endpoint)

	_, err = client.Fetch(context.Background(), "/missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Fetch_RetriesServerErrors(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()

	calls := 0
	server.On("/charts", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(testutil.Envelope([]any{})))
	})

	cfg := testConfig(server.URL())
	cfg.Retries = 2
	_, err := NewClient(cfg, nil).Fetch(context.Background(), EndpointCharts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, server.Hits("/charts"))
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"success", `{"success":true,"data":{"a":1}}`, false},
		{"success with empty list", `{"success":true,"data":[]}`, false},
		{"success false", `{"success":false,"message":"nope"}`, true},
		{"missing success", `{"data":{}}`, true},
		{"missing data", `{"success":true}`, true},
		{"null data", `{"success":true,"data":null}`, true},
		{"not json", `<html>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Envelope("/x", []byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsuccessful)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCatalog_Song(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()
	server.OnJSON("/songs/a", http.StatusOK, testutil.Envelope([]any{testutil.SongRecord("a", "First", "X")}))
	server.OnJSON("/songs/b", http.StatusOK, testutil.Envelope(testutil.SongRecord("b", "Object", "Y")))
	server.OnJSON("/songs/c", http.StatusOK, testutil.Envelope([]any{}))

	cat := New(NewClient(testConfig(server.URL()), nil))
	ctx := context.Background()

	song, err := cat.Song(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "First", song.Get("name").String())

	song, err = cat.Song(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Object", song.Get("name").String())

	_, err = cat.Song(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_Search(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()
	server.OnJSON("/search/all", http.StatusOK, testutil.Envelope(map[string]any{
		"albums": testutil.Results(testutil.Albums(2)),
	}))
	server.OnJSON("/search/albums", http.StatusOK, testutil.Envelope(testutil.Albums(3)))

	cat := New(NewClient(testConfig(server.URL()), nil))
	ctx := context.Background()

	all, err := cat.Search(ctx, models.FilterAll, "Rock")
	require.NoError(t, err)
	assert.Len(t, GroupResults(all, "albums"), 2)
	assert.Empty(t, GroupResults(all, "songs"))
	assert.Equal(t, "Rock", server.Queries("/search/all")[0].Get("query"))

	albums, err := cat.Search(ctx, models.FilterAlbums, "Rock")
	require.NoError(t, err)
	assert.Len(t, Results(albums), 3, "a bare array is accepted")
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "/albums/a%2Fb", DetailEndpoint(models.ItemTypeAlbum, "a/b"))
	assert.Equal(t, "/playlists/p1", DetailEndpoint(models.ItemTypePlaylist, "p1"))
	assert.Equal(t, "/songs/s1/lyrics", LyricsEndpoint("s1"))
	assert.Equal(t, "/search/artists", SearchEndpoint(models.FilterArtists))
}

// countingFetcher counts upstream calls
type countingFetcher struct {
	body  []byte
	err   error
	calls int
}

func (f *countingFetcher) Fetch(context.Context, string, url.Values) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

func TestCachedFetcher_CachesSuccess(t *testing.T) {
	upstream := &countingFetcher{body: []byte(testutil.Envelope([]any{}))}
	fetcher := NewCachedFetcher(upstream, cache.NewMemoryCache(10), DefaultTTLPolicy())
	ctx := context.Background()
	params := url.Values{"query": {"x"}}

	for i := 0; i < 3; i++ {
		body, err := fetcher.Fetch(ctx, "/search/songs", params)
		require.NoError(t, err)
		assert.JSONEq(t, testutil.Envelope([]any{}), string(body))
	}
	assert.Equal(t, 1, upstream.calls)
}

func TestCachedFetcher_DoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()

	unsuccessful := &countingFetcher{body: []byte(testutil.FailedEnvelope("down"))}
	fetcher := NewCachedFetcher(unsuccessful, cache.NewMemoryCache(10), DefaultTTLPolicy())
	_, _ = fetcher.Fetch(ctx, EndpointModules, nil)
	_, _ = fetcher.Fetch(ctx, EndpointModules, nil)
	assert.Equal(t, 2, unsuccessful.calls, "success:false bodies are not cached")

	failing := &countingFetcher{err: errors.New("dial tcp: refused")}
	fetcher = NewCachedFetcher(failing, cache.NewMemoryCache(10), DefaultTTLPolicy())
	_, err := fetcher.Fetch(ctx, EndpointModules, nil)
	assert.Error(t, err)
	_, _ = fetcher.Fetch(ctx, EndpointModules, nil)
	assert.Equal(t, 2, failing.calls)
}

// gatedFetcher blocks until released and fails with its context's error,
// the way an HTTP client does when its request context is canceled
type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
	body    []byte
}

func (f *gatedFetcher) Fetch(ctx context.Context, _ string, _ url.Values) ([]byte, error) {
	close(f.started)
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.body, nil
}

func TestCachedFetcher_CanceledLeaderDoesNotFailFollowers(t *testing.T) {
	upstream := &gatedFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		body:    []byte(testutil.Envelope([]any{})),
	}
	memory := cache.NewMemoryCache(10)
	fetcher := NewCachedFetcher(upstream, memory, DefaultTTLPolicy())

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := fetcher.Fetch(leaderCtx, EndpointTrending, nil)
		leaderErr <- err
	}()
	<-upstream.started

	type result struct {
		body []byte
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		body, err := fetcher.Fetch(context.Background(), EndpointTrending, nil)
		follower <- result{body, err}
	}()

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(upstream.release)
	got := <-follower
	require.NoError(t, got.err)
	assert.JSONEq(t, testutil.Envelope([]any{}), string(got.body))

	cached, err := memory.Get(context.Background(), CacheKey(EndpointTrending, nil))
	require.NoError(t, err)
	assert.NotNil(t, cached)
}

func TestCacheKey_IgnoresParamOrder(t *testing.T) {
	a := url.Values{}
	a.Set("query", "x")
	a.Set("limit", "20")
	b := url.Values{}
	b.Set("limit", "20")
	b.Set("query", "x")

	assert.Equal(t, CacheKey("/search/songs", a), CacheKey("/search/songs", b))
	assert.Equal(t, "catalog:/modules", CacheKey("/modules", nil))
}

func TestTTLPolicy_For(t *testing.T) {
	p := DefaultTTLPolicy()
	assert.Equal(t, 10*time.Minute, p.For(EndpointModules))
	assert.Equal(t, 10*time.Minute, p.For(EndpointTrending))
	assert.Equal(t, 5*time.Minute, p.For("/search/all"))
	assert.Equal(t, time.Hour, p.For("/songs/abc"))
}

func TestNewAuthenticator_APIKey(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()

	var got string
	server.On("/modules", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Catalog-Key")
		_, _ = w.Write([]byte(testutil.Envelope(map[string]any{})))
	})

	cfg := testConfig(server.URL())
	cfg.AuthMethod = config.AuthMethodAPIKey
	cfg.APIKey = "secret"
	cfg.APIKeyHeader = "X-Catalog-Key"

	auth, err := NewAuthenticator(cfg)
	require.NoError(t, err)
	_, err = NewClient(cfg, auth).Fetch(context.Background(), EndpointModules, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestNewAuthenticator_OAuth2(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()

	server.OnJSON("/token", http.StatusOK, `{"access_token":"mock-access-token","token_type":"Bearer","expires_in":3600}`)
	var got string
	server.On("/modules", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(testutil.Envelope(map[string]any{})))
	})

	cfg := testConfig(server.URL())
	cfg.AuthMethod = config.AuthMethodOAuth2
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.TokenURL = server.URL() + "/token"

	auth, err := NewAuthenticator(cfg)
	require.NoError(t, err)
	client := NewClient(cfg, auth)
	ctx := context.Background()

	_, err = client.Fetch(ctx, EndpointModules, nil)
	require.NoError(t, err)
	_, err = client.Fetch(ctx, EndpointModules, nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer mock-access-token", got)
	assert.Equal(t, 1, server.Hits("/token"), "token is reused until it expires")
}

func TestJWTAuth_SignsAndReuses(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a := &jwtAuth{
		secret:  []byte("shh"),
		issuer:  "melodeck",
		subject: "web",
		ttl:     time.Hour,
		now:     func() time.Time { return now },
	}

	first, err := a.current()
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(first, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return []byte("shh"), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "melodeck", claims.Issuer)
	assert.Equal(t, "web", claims.Subject)

	now = now.Add(30 * time.Minute)
	again, err := a.current()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	now = now.Add(25 * time.Minute)
	renewed, err := a.current()
	require.NoError(t, err)
	assert.NotEqual(t, first, renewed, "token is renewed close to expiry")
}

func TestAPIError(t *testing.T) {
	err := &APIError{Endpoint: "/modules", Operation: "request", StatusCode: 503, Message: "unavailable"}
	assert.Equal(t, "catalog request failed (/modules): status 503: unavailable", err.Error())

	wrapped := &APIError{Operation: "decode", Err: ErrUnsuccessful}
	assert.True(t, errors.Is(wrapped, ErrUnsuccessful))
}
