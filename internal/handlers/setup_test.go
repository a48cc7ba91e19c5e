package handlers

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"melodeck/internal/cache"
	"melodeck/internal/catalog"
	"melodeck/internal/config"
	"melodeck/internal/normalize"
	"melodeck/internal/render"
	"melodeck/internal/session"
	"melodeck/internal/testutil"
)

// testEnv is a router wired to a mock upstream catalog
type testEnv struct {
	upstream *testutil.MockHTTPServer
	sessions *session.Manager
	memory   *cache.MemoryCache
	router   *gin.Engine
	http     *testutil.HTTPTestHelper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	upstream := testutil.NewMockHTTPServer()
	t.Cleanup(upstream.Close)

	client := catalog.NewClient(&config.CatalogConfig{
		APIURL:  upstream.URL(),
		Timeout: 2 * time.Second,
	}, nil)
	cat := catalog.New(client)

	ui := config.DefaultUIConfig()
	renderer := render.NewRenderer(normalize.New(ui.PlaceholderImage), ui.ResultsPerSection, ui.BrowseCategories)
	sessions := session.NewManager(cat, renderer, session.Options{
		FeedSource:     config.FeedSourceModules,
		SectionSize:    ui.SectionSize,
		DebounceDelay:  10 * time.Millisecond,
		ConfirmTimeout: 2 * time.Second,
		IdleTimeout:    time.Minute,
	})
	t.Cleanup(sessions.Close)

	memory := cache.NewMemoryCache(100)
	layers := cache.NewLayered(time.Minute, cache.Layer{Name: "memory", Cache: memory})

	helper := testutil.NewHTTPTestHelper(t)
	router := NewRouter(Handlers{
		Pages: NewPageHandler(cat, renderer, sessions, layers),
		API:   NewAPIHandler(client),
		Live:  NewLiveHandler(sessions),
		Admin: NewAdminHandler(layers, memory, nil, sessions),
	})
	helper.SetRouter(router)

	return &testEnv{
		upstream: upstream,
		sessions: sessions,
		memory:   memory,
		router:   router,
		http:     helper,
	}
}
