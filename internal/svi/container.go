package svi

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/svidx/svi-fetch/pkg/log"
)

// State is the Container's lifecycle per spec.md §4.6.
type State int

const (
	Fresh State = iota
	Computing
	Consistent
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Computing:
		return "Computing"
	case Consistent:
		return "Consistent"
	case Stale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// RequestStructure is the ordered list of reduction layers that
// produced a Container's cached result, retained for auditability per
// spec.md §4.1/§4.6. Layer 0 is always the full fragment decomposition
// that was requested; each subsequent layer is the previous layer's
// per-group winners, ending in a final layer of exactly one fragment:
// the one whose window contains the stitched series' global maximum.
type RequestStructure struct {
	Layers [][]Fragment
}

// FinalFragment returns the single fragment in the last layer, or the
// zero Fragment and false if the structure is empty.
func (r RequestStructure) FinalFragment() (Fragment, bool) {
	if len(r.Layers) == 0 || len(r.Layers[len(r.Layers)-1]) != 1 {
		return Fragment{}, false
	}
	return r.Layers[len(r.Layers)-1][0], true
}

// Container owns one set of queries against one bounds/granularity and
// caches the stitched Table once computed. GetData is idempotent: a
// Consistent container returns its cached result without touching the
// network again.
type Container struct {
	client   *Client
	queries  []Query
	bounds   Bounds
	gran     Granularity
	category int
	delay    time.Duration
	force    bool
	probes   prometheus.Counter

	mu        sync.Mutex
	state     State
	data      Table
	warning   *TruncationWarning
	structure RequestStructure
}

// ContainerOption configures a Container at construction time.
type ContainerOption func(*Container)

func WithGranularity(g Granularity) ContainerOption {
	return func(c *Container) { c.gran = g }
}

func WithCategory(category int) ContainerOption {
	return func(c *Container) { c.category = category }
}

// WithDelay sets the base pacing delay between tournament probes.
func WithDelay(d time.Duration) ContainerOption {
	return func(c *Container) { c.delay = d }
}

// WithForceTruncation disables the "warn instead of truncate" escape
// hatch: the result is always cut to bounds.Lower regardless of where
// the global maximum falls.
func WithForceTruncation(force bool) ContainerOption {
	return func(c *Container) { c.force = force }
}

// WithProbeCounter wires a counter that's incremented once per
// tournament probe request, so a caller can expose it as a metric.
func WithProbeCounter(c prometheus.Counter) ContainerOption {
	return func(container *Container) { container.probes = c }
}

// NewContainer builds a Container for one or more queries over one
// bounds range, collapsing the original univariate/multivariate
// constructors per SPEC_FULL §4.
func NewContainer(client *Client, queries []Query, bounds Bounds, opts ...ContainerOption) (*Container, error) {
	if client == nil {
		return nil, validationErr("CONTAINER.NewContainer", "client is nil")
	}
	if len(queries) == 0 {
		return nil, validationErr("CONTAINER.NewContainer", "no queries given")
	}
	if !bounds.valid() {
		return nil, validationErr("CONTAINER.NewContainer", "bounds %s..%s must start on or after 2004-01-01, both edges must be strictly in the past, and Lower must be strictly before Upper", bounds.Lower, bounds.Upper)
	}

	c := &Container{
		client:  client,
		queries: append([]Query{}, queries...),
		bounds:  bounds,
		gran:    Day,
		state:   Fresh,
		delay:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.gran.valid() {
		return nil, validationErr("CONTAINER.NewContainer", "unknown granularity %q", c.gran)
	}
	return c, nil
}

// Invalidate marks a Consistent container Stale, forcing the next
// GetData call to recompute from scratch.
func (c *Container) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Consistent {
		c.state = Stale
	}
}

// State reports the container's current lifecycle state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestStructure returns the reduction layers behind the current
// cached result. It is empty until the first successful GetData.
func (c *Container) RequestStructure() RequestStructure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.structure
}

// GetData returns the stitched, normalized Table for this container's
// queries and bounds, computing it on first call (or after
// Invalidate) and serving the cached result afterward. A non-nil
// *TruncationWarning is a non-fatal advisory, not an error: the Table
// is still valid and usable.
func (c *Container) GetData(ctx context.Context) (Table, *TruncationWarning, error) {
	c.mu.Lock()
	if c.state == Consistent {
		data, warning := c.data, c.warning
		c.mu.Unlock()
		return data, warning, nil
	}
	c.state = Computing
	c.mu.Unlock()

	table, structure, warning, err := c.compute(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Stale
		return nil, nil, err
	}
	c.data, c.structure, c.warning, c.state = table, structure, warning, Consistent
	return table, warning, nil
}

func (c *Container) compute(ctx context.Context) (Table, RequestStructure, *TruncationWarning, error) {
	windows, err := planWindows(c.bounds, c.gran)
	if err != nil {
		return nil, RequestStructure{}, nil, err
	}
	fragments := buildFragments(c.queries, windows)
	log.Infof("SVI/CONTAINER > computing %d queries x %d windows = %d fragments (%s)", len(c.queries), len(windows), len(fragments), c.gran)

	var fragmentSeries []Series
	var structure RequestStructure
	if len(fragments) <= MaxComparisonSize {
		fragmentSeries, err = c.client.Compare(ctx, ComparisonRequest{Fragments: fragments, Category: c.category, Gran: c.gran})
		if err != nil {
			return nil, RequestStructure{}, nil, err
		}
		structure.Layers = [][]Fragment{append([]Fragment{}, fragments...)}
		if winner, ok := fragmentAtMax(fragments, fragmentSeries); ok {
			structure.Layers = append(structure.Layers, []Fragment{winner})
		}
	} else {
		pacer := NewPacer(c.delay)
		if c.probes != nil {
			pacer = pacer.WithProbeCounter(c.probes)
		}
		var winner Fragment
		winner, structure.Layers, err = findWinner(ctx, c.client, fragments, c.category, c.gran, pacer)
		if err != nil {
			return nil, RequestStructure{}, nil, err
		}
		fragmentSeries, err = normalize(ctx, c.client, c.category, c.gran, fragments, winner)
		if err != nil {
			return nil, RequestStructure{}, nil, err
		}
	}

	table := stitch(c.queries, windows, fragmentSeries)
	table, warning := finalize(table, c.bounds, c.force)
	if warning != nil {
		log.Warnf("SVI/CONTAINER > %s", warning.Error())
	}
	return table, structure, warning, nil
}
