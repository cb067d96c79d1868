package reconciler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"teamstream/internal/core/domain"
	pkgerrors "teamstream/pkg/errors"

	"go.uber.org/zap"
)

// State tracks where a reconciliation session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateBulkListed
	StateReconciling
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBulkListed:
		return "bulk_listed"
	case StateReconciling:
		return "reconciling"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// ChannelClass is the provider-side classification of a listed channel,
// used only to pick a grouping tier.
type ChannelClass string

const (
	ClassChannel    ChannelClass = "channel"
	ClassGroup      ChannelClass = "group"
	ClassMultiParty ChannelClass = "multi_party"
	ClassDirect     ChannelClass = "direct"
)

// GroupingPolicy maps channel classes to grouping tiers. Higher tiers drain
// first. The tier values are policy, not protocol; they come from config.
type GroupingPolicy struct {
	Channel    int
	Group      int
	MultiParty int
	Direct     int
}

// DefaultGroupingPolicy drains plain channels first and direct streams last.
func DefaultGroupingPolicy() GroupingPolicy {
	return GroupingPolicy{Channel: 10, Group: 5, MultiParty: 1, Direct: 0}
}

func (p GroupingPolicy) For(class ChannelClass) int {
	switch class {
	case ClassChannel:
		return p.Channel
	case ClassGroup:
		return p.Group
	case ClassMultiParty:
		return p.MultiParty
	default:
		return p.Direct
	}
}

// FetchFunc loads the full detail for one stream. Each deferred request
// carries its own fetch so callers can bind provider specifics per entry.
type FetchFunc func(ctx context.Context) (*domain.StreamSummary, error)

// Deferred is one pending background detail fetch created when a bulk
// listing returns summary-only data for a stream.
type Deferred struct {
	Summary  domain.StreamSummary
	Class    ChannelClass
	Grouping int
	Order    int
	Fetch    FetchFunc
}

// Sink merges resolved summaries into a local store and returns the
// canonicalized result.
type Sink interface {
	Resolve(summaries []domain.StreamSummary) []domain.StreamSummary
}

// Subscriber receives each flushed batch of resolved streams.
type Subscriber func(batch []domain.StreamSummary)

// Metrics counts reconciler outcomes. All methods must be safe for
// concurrent use.
type Metrics interface {
	FetchCompleted()
	FetchFailed()
	FetchTimedOut()
	BatchFlushed(size int)
}

type nopMetrics struct{}

func (nopMetrics) FetchCompleted()  {}
func (nopMetrics) FetchFailed()     {}
func (nopMetrics) FetchTimedOut()   {}
func (nopMetrics) BatchFlushed(int) {}

// Config bounds the reconciler's timing.
type Config struct {
	FetchTimeout  time.Duration
	FlushInterval time.Duration
}

// Reconciler merges an initial bulk stream listing with a background queue
// of per-stream detail fetches. The queue drains one item at a time to bound
// backend load; completed results accumulate and flush either when the queue
// drains or when the flush interval has elapsed since the last flush.
type Reconciler struct {
	cfg        Config
	sink       Sink
	subscriber Subscriber
	metrics    Metrics
	logger     *zap.SugaredLogger

	mu         sync.Mutex
	state      State
	queue      []*Deferred
	generation int
	draining   bool
	buffer     []domain.StreamSummary
	lastFlush  time.Time
	resolved   map[domain.StreamID]struct{}
	failures   int
	timeouts   int
}

func New(cfg Config, sink Sink, subscriber Subscriber, metrics Metrics, log *zap.SugaredLogger) *Reconciler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Reconciler{
		cfg:        cfg,
		sink:       sink,
		subscriber: subscriber,
		metrics:    metrics,
		logger:     log,
		state:      StateIdle,
		resolved:   make(map[domain.StreamID]struct{}),
	}
}

// SetStreams installs the result of a fresh bulk listing. Summaries go to
// the subscriber immediately so the caller never blocks on detail fetches;
// deferred entries replace any queue left over from a previous listing. A
// fetch already in flight is allowed to finish and its result is still
// merged.
func (r *Reconciler) SetStreams(ctx context.Context, summaries []domain.StreamSummary, deferred []*Deferred) {
	if len(summaries) > 0 {
		merged := r.sink.Resolve(summaries)
		r.subscriber(merged)
	}

	r.mu.Lock()
	r.generation++
	// the dedupe set scopes to one listing; a fresh pass may legitimately
	// re-resolve a stream with updated detail
	r.resolved = make(map[domain.StreamID]struct{}, len(deferred))
	r.queue = append([]*Deferred(nil), deferred...)
	sortQueue(r.queue)
	r.state = StateBulkListed
	if len(r.queue) == 0 {
		r.state = StateSettled
		r.mu.Unlock()
		return
	}
	r.state = StateReconciling
	alreadyDraining := r.draining
	r.draining = true
	r.mu.Unlock()

	if !alreadyDraining {
		go r.drain(ctx)
	}
}

// Enqueue adds deferred requests to the current queue, re-entering the
// reconciling state. Used on reconnect when only a handful of streams need
// refreshing.
func (r *Reconciler) Enqueue(ctx context.Context, deferred ...*Deferred) {
	if len(deferred) == 0 {
		return
	}

	r.mu.Lock()
	r.queue = append(r.queue, deferred...)
	sortQueue(r.queue)
	r.state = StateReconciling
	alreadyDraining := r.draining
	r.draining = true
	r.mu.Unlock()

	if !alreadyDraining {
		go r.drain(ctx)
	}
}

// sortQueue orders by grouping descending, then order ascending.
func sortQueue(q []*Deferred) {
	sort.SliceStable(q, func(i, j int) bool {
		if q[i].Grouping != q[j].Grouping {
			return q[i].Grouping > q[j].Grouping
		}
		return q[i].Order < q[j].Order
	})
}

// drain processes the queue one item at a time until it is empty, then
// flushes whatever remains buffered.
func (r *Reconciler) drain(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 || ctx.Err() != nil {
			r.draining = false
			buffer := r.takeBufferLocked()
			r.mu.Unlock()
			r.flush(buffer)

			// settle only if no new listing restarted the drain meanwhile
			r.mu.Lock()
			if !r.draining {
				r.state = StateSettled
			}
			r.mu.Unlock()
			return
		}
		item := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		r.process(ctx, item)

		r.mu.Lock()
		var buffer []domain.StreamSummary
		if len(r.queue) == 0 || (len(r.buffer) > 0 && time.Since(r.lastFlush) > r.cfg.FlushInterval) {
			buffer = r.takeBufferLocked()
		}
		r.mu.Unlock()
		r.flush(buffer)
	}
}

// process runs one deferred fetch under the per-fetch timeout and buffers
// the result. Timeouts and failures abandon the item; the queue moves on.
func (r *Reconciler) process(ctx context.Context, item *Deferred) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	detail, err := item.Fetch(fetchCtx)
	if err != nil {
		r.mu.Lock()
		if errors.Is(err, context.DeadlineExceeded) {
			r.timeouts++
			err = pkgerrors.NewFetchTimeoutError("detail fetch for stream " + string(item.Summary.ID))
			r.metrics.FetchTimedOut()
		} else {
			r.failures++
			err = pkgerrors.NewFetchError("detail fetch for stream "+string(item.Summary.ID), err)
			r.metrics.FetchFailed()
		}
		r.mu.Unlock()
		r.logger.Warnw("stream detail fetch abandoned",
			"stream", item.Summary.ID,
			"class", item.Class,
			"error", err,
		)
		return
	}

	// A detail fetch must not regress information the cheap listing already
	// knew. Direct streams often come back without a priority.
	if item.Class == ClassDirect && detail.Priority == nil && item.Summary.Priority != nil {
		p := *item.Summary.Priority
		detail.Priority = &p
	}

	r.metrics.FetchCompleted()

	r.mu.Lock()
	if _, seen := r.resolved[detail.ID]; !seen {
		r.resolved[detail.ID] = struct{}{}
		r.buffer = append(r.buffer, *detail)
	}
	r.mu.Unlock()
}

func (r *Reconciler) takeBufferLocked() []domain.StreamSummary {
	buffer := r.buffer
	r.buffer = nil
	return buffer
}

func (r *Reconciler) flush(buffer []domain.StreamSummary) {
	if len(buffer) == 0 {
		return
	}
	merged := r.sink.Resolve(buffer)
	r.subscriber(merged)
	r.metrics.BatchFlushed(len(buffer))

	r.mu.Lock()
	r.lastFlush = time.Now()
	r.mu.Unlock()
}

// Generation returns how many bulk listings this session has installed.
// Each listing replaces the deferred queue wholesale.
func (r *Reconciler) Generation() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// State returns the current lifecycle state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// FailureCount returns the number of abandoned fetches excluding timeouts.
func (r *Reconciler) FailureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// TimeoutCount returns the number of fetches abandoned on timeout.
func (r *Reconciler) TimeoutCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeouts
}
