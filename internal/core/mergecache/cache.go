// Package mergecache guarantees at most one merged recipe per merge key,
// synthesizing on a miss under a per-key lock.
package mergecache

import (
	"context"
	"errors"

	"github.com/agenthands/recipemerge/internal/core/assemble"
	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/core/synthesis"
	"github.com/agenthands/recipemerge/internal/logger"
)

type PageReader interface {
	Snapshots(ctx context.Context, ids []int64) ([]model.Page, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, pages []model.Page, clusterType model.ClusterType, threshold float64) (*synthesis.Result, error)
}

// Gateway is the persistence side. Create must fail with a KindConflict
// error when a row with the same key already exists.
type Gateway interface {
	FindByKey(ctx context.Context, key string) (*model.MergedRecipe, error)
	Create(ctx context.Context, r *model.MergedRecipe) error
}

type Cache struct {
	Pages     PageReader
	Synth     Synthesizer
	Store     Gateway
	Locks     Locker
	Assembler *assemble.Assembler
	Log       *logger.Logger
}

func NewCache(pages PageReader, synth Synthesizer, store Gateway, locks Locker, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNop()
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &Cache{
		Pages:     pages,
		Synth:     synth,
		Store:     store,
		Locks:     locks,
		Assembler: assemble.NewAssembler(),
		Log:       log.With("component", "MergeCache"),
	}
}

// GetOrCreate returns the merged recipe for key, synthesizing it when no
// row exists. Concurrent calls for one key run synthesis at most once per
// lock domain; across domains the storage uniqueness constraint decides and
// the loser returns the winner's row. On error nothing is persisted.
func (c *Cache) GetOrCreate(ctx context.Context, key string, pageIDs []int64, clusterType model.ClusterType, threshold float64) (*model.MergeResult, error) {
	const op = "mergecache.GetOrCreate"

	ids := mergekey.Normalize(pageIDs)
	if key == "" {
		key = mergekey.Key(ids)
	}
	if key != mergekey.Key(ids) {
		return nil, model.Errorf(model.KindInput, op, "key %s does not match pages %s", key, mergekey.Canonical(ids))
	}
	log := c.Log.With("key", key, "pages", mergekey.Canonical(ids), "cluster_type", clusterType)
	path := []model.MergeState{model.StatePending}

	if existing, err := c.Store.FindByKey(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		log.Debug("Merge cache hit")
		return hit(existing, path), nil
	}

	unlock, err := c.Locks.Lock(ctx, key)
	if err != nil {
		return nil, model.NewError(model.KindTransport, op, err)
	}
	defer unlock()

	// Another holder may have finished while we waited.
	if existing, err := c.Store.FindByKey(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		log.Debug("Merge cache hit after lock")
		return hit(existing, path), nil
	}

	pages, err := c.Pages.Snapshots(ctx, ids)
	if err != nil {
		return nil, model.NewError(model.KindPersistence, op, err)
	}
	if missing := missingPages(ids, pages); len(missing) > 0 {
		return nil, model.Errorf(model.KindInput, op, "unknown pages %v", missing)
	}

	path = append(path, model.StateSynthesizing)
	res, err := c.Synth.Synthesize(ctx, pages, clusterType, threshold)
	if err != nil {
		log.Warn("Synthesis failed, nothing persisted", "path", append(path, model.StateFailed), "error", err)
		return nil, err
	}
	path = append(path, res.State)

	recipe, err := c.Assembler.Assemble(assemble.Input{
		Key:          key,
		PageIDs:      ids,
		Pages:        pages,
		ClusterType:  clusterType,
		Threshold:    threshold,
		Payload:      res.Payload,
		GPTValidated: res.GPTValidated,
		MergeModel:   res.MergeModel,
	})
	if err != nil {
		return nil, err
	}

	if err := c.Store.Create(ctx, recipe); err != nil {
		if !errors.Is(err, model.ErrConflict) {
			log.Error("Failed to persist merged recipe", "error", err)
			return nil, err
		}
		// Lost the race to a writer outside our lock domain.
		winner, findErr := c.Store.FindByKey(ctx, key)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, model.Errorf(model.KindPersistence, op, "conflict on key %s but no row found", key)
		}
		log.Info("Merge key taken concurrently, returning stored recipe", "id", winner.ID)
		return hit(winner, path), nil
	}

	path = append(path, model.StateDone)
	log.Info("Merged recipe created",
		"id", recipe.ID, "gpt_validated", recipe.GPTValidated, "merge_model", recipe.MergeModel,
		"attempts", res.Attempts, "parse_status", res.Status)
	return &model.MergeResult{Recipe: recipe, Path: path}, nil
}

func hit(r *model.MergedRecipe, path []model.MergeState) *model.MergeResult {
	return &model.MergeResult{
		Recipe:   r,
		CacheHit: true,
		Path:     append(path, model.StateDone),
	}
}

func missingPages(ids []int64, pages []model.Page) []int64 {
	have := make(map[int64]bool, len(pages))
	for _, p := range pages {
		have[p.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
