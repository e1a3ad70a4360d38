package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/pdasim/pkg/domain"
)

// LogHooks logs every generation at debug level and every halt at info level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGeneration: func(ctx context.Context, e *domain.GenerationEvent) {
			logger.DebugContext(ctx, "generation",
				"run_id", e.RunID,
				"step", e.Step,
				"frontier", e.Frontier,
				"created", e.Created,
				"dropped", e.Dropped,
				"pruned", e.Pruned,
				"phase", e.Phase,
			)
		},
		OnHalt: func(ctx context.Context, e *domain.HaltEvent) {
			logger.InfoContext(ctx, "halt",
				"run_id", e.RunID,
				"step", e.Step,
				"phase", e.Phase,
				"verdict", e.Verdict,
				"configs", e.Configs,
			)
		},
	}
}

// Combine calls every non-nil hook in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var gens []func(context.Context, *domain.GenerationEvent)
	var halts []func(context.Context, *domain.HaltEvent)
	for _, h := range sets {
		if h.OnGeneration != nil {
			gens = append(gens, h.OnGeneration)
		}
		if h.OnHalt != nil {
			halts = append(halts, h.OnHalt)
		}
	}
	var out domain.LifecycleHooks
	if len(gens) > 0 {
		out.OnGeneration = func(ctx context.Context, e *domain.GenerationEvent) {
			for _, fn := range gens {
				fn(ctx, e)
			}
		}
	}
	if len(halts) > 0 {
		out.OnHalt = func(ctx context.Context, e *domain.HaltEvent) {
			for _, fn := range halts {
				fn(ctx, e)
			}
		}
	}
	return out
}
