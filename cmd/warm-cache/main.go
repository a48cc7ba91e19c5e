package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"melodeck/internal/app"
	"melodeck/internal/catalog"
	"melodeck/internal/config"
	"melodeck/internal/models"
)

// warmConfig tunes a warm-up run
type warmConfig struct {
	Concurrency int           `envconfig:"WARM_CONCURRENCY" default:"4"`
	Details     bool          `envconfig:"WARM_DETAILS" default:"true"`
	Timeout     time.Duration `envconfig:"WARM_TIMEOUT" default:"2m"`
}

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	uiCfg, err := config.LoadUIConfig(cfg.UIConfigPath)
	if err != nil {
		slog.Error("Failed to load UI configuration", "error", err)
		os.Exit(1)
	}
	var warm warmConfig
	if err := envconfig.Process("", &warm); err != nil {
		slog.Error("Failed to load warm-up configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), warm.Timeout)
	defer cancel()

	stack, err := app.NewStack(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build catalog stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close(context.Background())

	slog.Info("Starting cache warm-up", "layers", stack.Layers.Names(), "concurrency", warm.Concurrency)

	w := &warmer{catalog: stack.Catalog}
	w.run(ctx, warm, uiCfg.BrowseCategories)

	slog.Info("Cache warm-up completed",
		"warmed", w.warmed.Load(),
		"failed", w.failed.Load())

	fmt.Println("Warm-up completed!")
	fmt.Printf("Warmed: %d responses\n", w.warmed.Load())
	fmt.Printf("Failed: %d responses\n", w.failed.Load())
}

// warmer reads through the cached catalog so every response lands in the cache layers
type warmer struct {
	catalog *catalog.Catalog
	warmed  atomic.Int64
	failed  atomic.Int64
}

func (w *warmer) record(what string, err error) {
	if err != nil {
		w.failed.Add(1)
		slog.Warn("Failed to warm response", "what", what, "error", err)
		return
	}
	w.warmed.Add(1)
}

func (w *warmer) run(ctx context.Context, cfg warmConfig, categories []config.BrowseCategory) {
	modules, err := w.catalog.Modules(ctx)
	w.record("modules", err)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))

	g.Go(func() error {
		_, err := w.catalog.Trending(gctx)
		w.record("trending", err)
		return nil
	})
	g.Go(func() error {
		_, err := w.catalog.Charts(gctx)
		w.record("charts", err)
		return nil
	})

	// browse categories are searched verbatim when clicked
	for _, category := range categories {
		g.Go(func() error {
			_, err := w.catalog.Search(gctx, models.FilterAll, category.Label)
			w.record("search "+category.Label, err)
			return nil
		})
	}

	if cfg.Details && err == nil {
		for _, target := range detailTargets(modules) {
			g.Go(func() error {
				_, err := w.catalog.Detail(gctx, target.itemType, target.id)
				w.record(string(target.itemType)+" "+target.id, err)
				return nil
			})
		}
	}

	_ = g.Wait()
}

type detailTarget struct {
	itemType models.ItemType
	id       string
}

// detailTargets lists the albums and playlists linked from the home feed
func detailTargets(modules gjson.Result) []detailTarget {
	var targets []detailTarget
	for key, itemType := range map[string]models.ItemType{
		"albums":    models.ItemTypeAlbum,
		"playlists": models.ItemTypePlaylist,
	} {
		modules.Get(key).ForEach(func(_, item gjson.Result) bool {
			if id := item.Get("id").String(); id != "" {
				targets = append(targets, detailTarget{itemType: itemType, id: id})
			}
			return true
		})
	}
	return targets
}
