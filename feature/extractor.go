package feature

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var errInvalidFrame = fmt.Errorf("feature: invalid frame dimensions for format")

// Extractor is the FeatureExtractor of §4.4: a registry of named pure
// functions, each independently enabled, run in parallel over one frame.
type Extractor struct {
	mu      sync.RWMutex
	funcs   map[string]Func
	enabled map[string]bool
}

// New returns an Extractor with every built-in feature registered and
// enabled.
func New() *Extractor {
	e := &Extractor{
		funcs:   make(map[string]Func),
		enabled: make(map[string]bool),
	}
	e.Register("average", builtinAverage)
	e.Register("max", builtinMax)
	e.Register("min", builtinMin)
	e.Register("histogram", builtinHistogram)
	e.Register("edge_count", builtinEdgeCount)
	e.Register("noise_level", builtinNoiseLevel)
	return e
}

// Register adds or replaces a named feature function, enabled by default.
func (e *Extractor) Register(name string, fn Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[name] = fn
	if _, ok := e.enabled[name]; !ok {
		e.enabled[name] = true
	}
}

// Enable toggles whether a registered feature runs during Extract.
func (e *Extractor) Enable(name string, on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled[name] = on
}

// Result is the map handed back by Extract: feature name -> Value, plus
// extraction_time_ms under a reserved key (§4.4 contract).
type Result map[string]Value

const extractionTimeKey = "extraction_time_ms"

// Extract runs every enabled feature over fr concurrently via a bounded
// errgroup pool. A feature that panics or returns an error is logged and
// simply omitted from Result; it never fails the other features or the
// call as a whole (§4.4 Failure semantics).
func (e *Extractor) Extract(fr Frame) Result {
	start := time.Now()

	e.mu.RLock()
	type job struct {
		name string
		fn   Func
	}
	jobs := make([]job, 0, len(e.funcs))
	for name, fn := range e.funcs {
		if e.enabled[name] {
			jobs = append(jobs, job{name: name, fn: fn})
		}
	}
	e.mu.RUnlock()

	var mu sync.Mutex
	result := make(Result, len(jobs)+1)

	g := new(errgroup.Group)
	if len(jobs) > 0 {
		g.SetLimit(len(jobs))
	}
	for _, j := range jobs {
		j := j
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("feature: %s panicked: %v", j.name, r)
					err = nil
				}
			}()

			v, ferr := j.fn(fr)
			if ferr != nil {
				log.Warnf("feature: %s failed: %v", j.name, ferr)
				return nil
			}

			mu.Lock()
			result[j.name] = v
			mu.Unlock()
			return nil
		})
	}
	// g.Wait's error is always nil here: every job swallows its own
	// failure so other features are unaffected.
	_ = g.Wait()

	result[extractionTimeKey] = realValue(float64(time.Since(start).Microseconds()) / 1000.0)
	return result
}
