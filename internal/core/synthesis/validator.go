package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/core/common"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/llm"
	"github.com/agenthands/recipemerge/internal/logger"
)

// RetryPolicy bounds the generative attempts for one cluster. Backoff
// returns the wait after the given failed attempt (1-based).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// ExponentialBackoff waits base·2^(attempt-1), capped at limit.
func ExponentialBackoff(base, limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= limit {
				return limit
			}
		}
		return min(d, limit)
	}
}

func DefaultPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: ExponentialBackoff(time.Second, 30*time.Second)}
}

type Options struct {
	// Model is recorded as merge_model on validated merges.
	Model       string
	Policy      RetryPolicy
	Timeout     time.Duration
	Prompts     config.Prompts
	Temperature float32
	MaxTokens   int
	// Limiter, when set, caps generative calls in flight. The slot is taken
	// before the per-attempt timeout starts.
	Limiter *llm.Limiter
}

// Result is the outcome of a successful synthesis. State is VALIDATED or
// FALLBACK.
type Result struct {
	Payload      model.MergePayload
	GPTValidated bool
	MergeModel   string
	Threshold    float64
	Status       common.ParseStatus
	Attempts     int
	State        model.MergeState
}

type Validator struct {
	LLM  llm.LLMClient
	Opts Options
	Log  *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewValidator(client llm.LLMClient, opts Options, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Policy.MaxAttempts < 1 {
		opts.Policy.MaxAttempts = 1
	}
	if opts.Policy.Backoff == nil {
		opts.Policy.Backoff = func(int) time.Duration { return 0 }
	}
	if opts.Prompts.Merge == "" {
		opts.Prompts.Merge = config.DefaultMergePrompt
	}
	if opts.Prompts.System == "" {
		opts.Prompts.System = config.DefaultSystemPrompt
	}
	return &Validator{
		LLM:   client,
		Opts:  opts,
		Log:   log.With("component", "SynthesisValidator"),
		sleep: sleepCtx,
	}
}

// Synthesize produces the canonical payload for one cluster. When every
// attempt fails, image clusters fall back to the most complete page and
// every other type returns a retryable error.
func (v *Validator) Synthesize(ctx context.Context, pages []model.Page, clusterType model.ClusterType, threshold float64) (*Result, error) {
	const op = "synthesis.Synthesize"
	if len(pages) == 0 {
		return nil, model.Errorf(model.KindInput, op, "no pages to merge")
	}
	pages = sortedByID(pages)
	distinct := DistinctPages(pages)
	if dropped := len(pages) - len(distinct); dropped > 0 {
		v.Log.Debug("Near-identical pages left out of the prompt", "cluster_type", clusterType, "pages", len(pages), "dropped", dropped)
	}

	req := llm.Request{
		System:      v.Opts.Prompts.System,
		Prompt:      RenderMergePrompt(v.Opts.Prompts.Merge, clusterType, threshold, distinct),
		Temperature: v.Opts.Temperature,
		MaxTokens:   v.Opts.MaxTokens,
		JSON:        true,
	}

	var (
		lastErr    error
		lastStatus = common.ParseFailed
		attempts   int
	)
	for attempt := 1; attempt <= v.Opts.Policy.MaxAttempts; attempt++ {
		attempts = attempt
		payload, status, err := v.attempt(ctx, req)
		if err == nil {
			v.Log.Debug("Synthesis validated", "cluster_type", clusterType, "attempt", attempt, "status", status)
			return &Result{
				Payload:      payload,
				GPTValidated: true,
				MergeModel:   v.Opts.Model,
				Threshold:    threshold,
				Status:       status,
				Attempts:     attempt,
				State:        model.StateValidated,
			}, nil
		}
		lastErr, lastStatus = err, status
		v.Log.Warn("Synthesis attempt failed",
			"cluster_type", clusterType, "attempt", attempt, "max_attempts", v.Opts.Policy.MaxAttempts, "error", err)

		if ctx.Err() != nil {
			return nil, model.NewError(model.KindTransport, op, ctx.Err())
		}
		if attempt < v.Opts.Policy.MaxAttempts {
			if err := v.sleep(ctx, v.Opts.Policy.Backoff(attempt)); err != nil {
				return nil, model.NewError(model.KindTransport, op, err)
			}
		}
	}

	if !clusterType.AllowsFallback() {
		return nil, lastErr
	}

	v.Log.Info("Synthesis exhausted, using deterministic fallback", "cluster_type", clusterType, "attempts", attempts)
	return &Result{
		Payload:      Fallback(pages),
		GPTValidated: false,
		MergeModel:   FallbackModel,
		Threshold:    threshold,
		Status:       lastStatus,
		Attempts:     attempts,
		State:        model.StateFallback,
	}, nil
}

// attempt runs one bounded generative call and validates its response.
// Errors are *model.Error of kind Transport or Validation.
func (v *Validator) attempt(ctx context.Context, req llm.Request) (model.MergePayload, common.ParseStatus, error) {
	const op = "synthesis.attempt"

	if v.Opts.Limiter != nil {
		release, err := v.Opts.Limiter.Acquire(ctx)
		if err != nil {
			return model.MergePayload{}, common.ParseFailed, model.NewError(model.KindTransport, op, err)
		}
		defer release()
	}

	callCtx := ctx
	if v.Opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, v.Opts.Timeout)
		defer cancel()
	}

	response, err := v.LLM.Generate(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", v.Opts.Timeout, err)
		}
		return model.MergePayload{}, common.ParseFailed, model.NewError(model.KindTransport, op, err)
	}

	raw, status, err := common.ParseJSON[map[string]json.RawMessage](response)
	if err != nil {
		return model.MergePayload{}, status, model.NewError(model.KindValidation, op, err)
	}

	payload, err := decodePayload(raw)
	if err != nil {
		return model.MergePayload{}, common.ParseFailed, model.NewError(model.KindValidation, op, err)
	}
	return payload, status, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
