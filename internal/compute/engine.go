package compute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Engine holds the live index Params and turns ingested samples into
// analysed batches. Params may be swapped at any time (config hot-reload);
// a batch is always computed against a single consistent Params value.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	params Params
	newID  func() string // injectable for deterministic tests
}

// NewEngine returns an Engine using p.
func NewEngine(p Params) *Engine {
	return &Engine{params: p, newID: uuid.NewString}
}

// Params returns the Params currently in effect.
func (e *Engine) Params() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// SetParams replaces the Params used by subsequent batches.
func (e *Engine) SetParams(p Params) {
	e.mu.Lock()
	e.params = p
	e.mu.Unlock()
	slog.Info("compute: params updated",
		"safe_below", p.Bands.SafeBelow,
		"unsafe_above", p.Bands.UnsafeAbove,
		"hpi_scale", p.HPIScale,
	)
}

// Process computes indices for every record of vr and returns a new Batch.
//
// now is passed explicitly so callers (and tests) control the clock. Use
// time.Now() in production.
//
// Validation errors are carried into the batch unchanged; a result with no
// records still yields a Batch (with an empty summary) so callers can report
// the errors.
func (e *Engine) Process(name string, vr types.ValidationResult, now time.Time) *types.Batch {
	p := e.Params()

	results := Analyze(vr.Records, p)
	errs := vr.Errors
	if errs == nil {
		errs = []string{}
	}

	b := &types.Batch{
		ID:        e.newID(),
		Name:      name,
		CreatedAt: now,
		Results:   results,
		Errors:    errs,
		Summary:   Summarize(results, p.ExtremeMetals),
		Bands:     p.Bands,
	}

	slog.Debug("compute: batch analysed",
		"batch", b.ID,
		"name", name,
		"samples", len(results),
		"errors", len(errs),
		"unsafe", b.Summary.Counts.Unsafe,
	)
	return b
}
