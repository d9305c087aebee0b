// Package app assembles the merge engine from configuration. It is shared by
// the HTTP server and the mergectl command.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/core"
	"github.com/agenthands/recipemerge/internal/core/mergecache"
	"github.com/agenthands/recipemerge/internal/core/synthesis"
	"github.com/agenthands/recipemerge/internal/driver"
	"github.com/agenthands/recipemerge/internal/llm"
	"github.com/agenthands/recipemerge/internal/logger"
	"github.com/agenthands/recipemerge/internal/store"
)

type App struct {
	Config  *config.Config
	Log     *logger.Logger
	DB      *gorm.DB
	Pages   *store.PageStore
	Recipes *store.RecipeStore
	// Similarity is nil when Memgraph is not configured or unreachable.
	Similarity *driver.GraphSimilarity
	Engine     *core.Engine

	closers []func()
}

// Options override pieces of the wiring, mostly for tests.
type Options struct {
	LLM llm.LLMClient
	// SkipGraph disables the Memgraph connection.
	SkipGraph bool
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{Config: cfg, Log: log}

	db, err := store.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() { _ = store.Close(db) })
	a.Pages = store.NewPageStore(db, log)
	a.Recipes = store.NewRecipeStore(db, log)

	client := opts.LLM
	if client == nil {
		client, err = llm.NewClient(ctx, cfg.LLM, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		if c, ok := client.(io.Closer); ok {
			a.closers = append(a.closers, func() { _ = c.Close() })
		}
	}

	validator := synthesis.NewValidator(client, synthesis.Options{
		Model: cfg.LLM.Model,
		Policy: synthesis.RetryPolicy{
			MaxAttempts: cfg.Merge.MaxAttempts,
			Backoff:     synthesis.ExponentialBackoff(cfg.Merge.BackoffBase(), cfg.Merge.BackoffMax()),
		},
		Timeout:     cfg.Merge.Timeout(),
		Prompts:     cfg.Prompts,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Limiter:     llm.NewLimiter(cfg.Merge.MaxInFlight),
	}, log)

	locks, err := a.locker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	cache := mergecache.NewCache(a.Pages, validator, a.Recipes, locks, log)

	var source core.EdgeSource
	if !opts.SkipGraph && cfg.Memgraph.URI != "" {
		g, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			log.Warn("Memgraph unavailable, similarity source disabled", "uri", cfg.Memgraph.URI, "error", err)
		} else {
			if err := g.BuildIndices(ctx); err != nil {
				log.Warn("Failed to build graph indices", "error", err)
			}
			a.closers = append(a.closers, func() { _ = g.Close(context.Background()) })
			a.Similarity = driver.NewGraphSimilarity(g, log)
			source = a.Similarity
		}
	}

	a.Engine = core.NewEngine(a.Pages, source, cache, cfg.Merge.Workers, log)
	return a, nil
}

func (a *App) locker(ctx context.Context) (mergecache.Locker, error) {
	cfg := a.Config
	if strings.ToLower(cfg.Merge.Locker) != "redis" {
		return mergecache.NewKeyedMutex(), nil
	}
	rdb, err := mergecache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("redis locker: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return newRedisLocker(rdb, cfg, a.Log), nil
}

func newRedisLocker(rdb goredis.UniversalClient, cfg *config.Config, log *logger.Logger) *mergecache.RedisLocker {
	ttl := time.Duration(cfg.Redis.LockTTLMs) * time.Millisecond
	return mergecache.NewRedisLocker(rdb, ttl, cfg.Merge.LockPoll(), log)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.Log.Sync()
}
