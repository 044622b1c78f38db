// SPDX-License-Identifier: Apache-2.0

// Package pipeline sequences the screening run: preprocessing, ghost and
// duplicate detection in parallel, then explanation. A run either completes
// with a full result or aborts with no partial output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rollscan/internal/detector"
	"rollscan/internal/duplicate"
	"rollscan/internal/explain"
	"rollscan/internal/ghost"
	"rollscan/internal/observability"
	"rollscan/internal/preprocess"
	"rollscan/internal/registry"
)

// State is the orchestrator's externally visible phase.
type State string

const (
	StateIdle          State = "idle"
	StatePreprocessing State = "preprocessing"
	StateDetecting     State = "detecting"
	StateExplaining    State = "explaining"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Options configures one Pipeline. Zero-valued detector configs take the
// documented defaults; a zero ReferenceDate means time.Now at Run.
type Options struct {
	Ghost         ghost.Config
	Duplicate     duplicate.Config
	ReferenceDate time.Time
	Observer      *observability.StandardObserver
}

// Result is the complete output of a successful run.
type Result struct {
	Flagged []detector.FlaggedRecord
	Groups  []detector.DuplicateGroup
	Summary detector.Summary
	// Advisory carries non-fatal degradation notices, such as the anomaly
	// model being skipped on a small population. Nil on a fully modeled run.
	Advisory error
}

// Pipeline runs the screening stages over a loaded registry.
type Pipeline struct {
	opts     Options
	observer *observability.StandardObserver

	mu    sync.Mutex
	state State
}

// New creates a Pipeline in the idle state.
func New(opts Options) *Pipeline {
	observer := opts.Observer
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, io.Discard)
	}
	return &Pipeline{
		opts:     opts,
		observer: observer,
		state:    StateIdle,
	}
}

// State returns the pipeline's current phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run executes the full pipeline over records. On success the pipeline ends
// in StateDone with a complete Result; on failure it ends in StateFailed and
// the error is a *detector.PipelineAbortedError. Cancellation is honored
// between stages.
func (p *Pipeline) Run(ctx context.Context, records []registry.VoterRecord) (*Result, error) {
	p.mu.Lock()
	if p.state == StatePreprocessing || p.state == StateDetecting || p.state == StateExplaining {
		p.mu.Unlock()
		return nil, fmt.Errorf("pipeline already running (state %s)", p.state)
	}
	p.state = StatePreprocessing
	p.mu.Unlock()

	runID := uuid.NewString()
	startedAt := time.Now()

	refDate := p.opts.ReferenceDate
	if refDate.IsZero() {
		refDate = startedAt
	}

	// Stage 1: preprocessing.
	done := p.observer.StartTiming("pipeline", "preprocess", "")
	features, issues := preprocess.New(refDate).Run(records)
	done(true, map[string]interface{}{
		"records":  len(records),
		"usable":   len(features),
		"excluded": len(issues),
	})

	if len(features) == 0 {
		return p.abort(&detector.PipelineAbortedError{
			Stage:  string(StatePreprocessing),
			Reason: "no usable records in input",
			Issues: issues,
		})
	}
	if err := ctx.Err(); err != nil {
		return p.abortCanceled(StatePreprocessing, issues, err)
	}

	// Stage 2: ghost and duplicate detection, concurrently.
	p.setState(StateDetecting)

	var (
		findings []detector.GhostFinding
		advisory error
		groups   []detector.DuplicateGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		done := p.observer.StartTiming("pipeline", "ghost_detect", "")
		findings, advisory = ghost.NewDetector(p.opts.Ghost).Detect(features)
		done(true, map[string]interface{}{"findings": len(findings), "degraded": advisory != nil})
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		done := p.observer.StartTiming("pipeline", "duplicate_detect", "")
		groups = duplicate.NewDetector(p.opts.Duplicate).Detect(features)
		done(true, map[string]interface{}{"groups": len(groups)})
		return nil
	})
	if err := g.Wait(); err != nil {
		return p.abort(&detector.PipelineAbortedError{
			Stage:  string(StateDetecting),
			Reason: err.Error(),
			Issues: issues,
			Err:    err,
		})
	}
	if err := ctx.Err(); err != nil {
		return p.abortCanceled(StateDetecting, issues, err)
	}

	// Stage 3: explanation.
	p.setState(StateExplaining)
	done = p.observer.StartTiming("pipeline", "explain", "")

	groupByMember := make(map[string]*detector.DuplicateGroup)
	for i := range groups {
		for _, member := range groups[i].Members {
			groupByMember[member] = &groups[i]
		}
	}

	explainer := explain.New()
	flagged := make([]detector.FlaggedRecord, 0)
	summary := detector.Summary{
		RunID:           runID,
		Timestamp:       startedAt,
		TotalEvaluated:  len(features),
		DuplicateGroups: len(groups),
		Skipped:         issues,
	}
	for i := range features {
		rec, ok := explainer.Explain(&features[i], &findings[i], groupByMember[features[i].VoterID])
		if !ok {
			continue
		}
		flagged = append(flagged, rec)
		switch rec.RecordType {
		case detector.RecordTypeGhost:
			summary.GhostCount++
		case detector.RecordTypeDuplicate:
			summary.DuplicateCount++
		case detector.RecordTypeBoth:
			summary.BothCount++
		}
	}
	summary.TotalFlagged = len(flagged)
	done(true, map[string]interface{}{"flagged": len(flagged)})

	p.setState(StateDone)
	return &Result{
		Flagged:  flagged,
		Groups:   groups,
		Summary:  summary,
		Advisory: advisory,
	}, nil
}

func (p *Pipeline) abort(err *detector.PipelineAbortedError) (*Result, error) {
	p.setState(StateFailed)
	p.observer.LogOperation(observability.StageObservabilityData{
		Component: "pipeline",
		Operation: err.Stage,
		Success:   false,
		Error:     err.Error(),
	})
	return nil, err
}

func (p *Pipeline) abortCanceled(stage State, issues []detector.RecordIssue, cause error) (*Result, error) {
	return p.abort(&detector.PipelineAbortedError{
		Stage:  string(stage),
		Reason: "run canceled",
		Issues: issues,
		Err:    cause,
	})
}
