package dispatch

import (
	"context"
	"sync"
	"time"

	celgo "github.com/google/cel-go/cel"

	"osprey/internal/constants"
	"osprey/internal/logger"
	"osprey/pkg/cel"
	"osprey/pkg/metrics"
)

// FilterEvaluator decides whether a trigger event passes a subscription's
// optional CEL filter. Compiled programs are cached per expression since
// subscriptions re-fire the same filter on every event.
type FilterEvaluator struct {
	evaluator *cel.Evaluator
	fallback  string
	logger    logger.Logger

	mu       sync.RWMutex
	programs map[string]celgo.Program
}

func NewFilterEvaluator(fallback string, log logger.Logger) (*FilterEvaluator, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	if fallback == "" {
		fallback = constants.FallbackAllow
	}

	return &FilterEvaluator{
		evaluator: evaluator,
		fallback:  fallback,
		logger:    log,
		programs:  make(map[string]celgo.Program),
	}, nil
}

// ShouldDeliver returns true when the subscription has no filter or the
// filter matches. Evaluation failures follow the configured fallback:
// allow delivers anyway, deny skips, error propagates.
func (f *FilterEvaluator) ShouldDeliver(ctx context.Context, expression string, event TriggerEvent, ts time.Time) (bool, error) {
	if expression == "" {
		return true, nil
	}

	program, err := f.program(expression)
	if err != nil {
		return f.applyFallback(ctx, expression, err)
	}

	vars := map[string]interface{}{
		"trigger_type": event.TriggerType,
		"user_id":      event.UserID,
		"analysis_id":  event.AnalysisID,
		"timestamp":    ts,
		"data":         event.Data,
	}

	matched, err := f.evaluator.EvaluateProgram(ctx, program, vars)
	if err != nil {
		return f.applyFallback(ctx, expression, err)
	}

	if matched {
		metrics.FilterEvaluationsTotal.WithLabelValues("matched").Inc()
	} else {
		metrics.FilterEvaluationsTotal.WithLabelValues("skipped").Inc()
	}

	return matched, nil
}

func (f *FilterEvaluator) program(expression string) (celgo.Program, error) {
	f.mu.RLock()
	program, ok := f.programs[expression]
	f.mu.RUnlock()
	if ok {
		return program, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if program, ok := f.programs[expression]; ok {
		return program, nil
	}

	program, err := f.evaluator.CompileFilter(expression)
	if err != nil {
		return nil, err
	}

	f.programs[expression] = program
	return program, nil
}

func (f *FilterEvaluator) applyFallback(ctx context.Context, expression string, evalErr error) (bool, error) {
	metrics.FilterEvaluationsTotal.WithLabelValues("error").Inc()

	switch f.fallback {
	case constants.FallbackAllow:
		metrics.FallbackUsageTotal.WithLabelValues("dispatch", "filter_allow_on_error", "evaluation_error").Inc()
		f.logger.WarnwCtx(ctx, "Filter evaluation failed, delivering anyway (fallback: allow)",
			"expression", expression,
			"error", evalErr,
		)
		return true, nil
	case constants.FallbackDeny:
		metrics.FallbackUsageTotal.WithLabelValues("dispatch", "filter_deny_on_error", "evaluation_error").Inc()
		f.logger.WarnwCtx(ctx, "Filter evaluation failed, skipping delivery (fallback: deny)",
			"expression", expression,
			"error", evalErr,
		)
		return false, nil
	default:
		return false, evalErr
	}
}
