package listquery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Status is the fetch state of a controller.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Snapshot is a read-only copy of a controller's state. Generation increases
// by one for every change a consumer can observe.
type Snapshot[T any] struct {
	State      QueryState
	Items      []T
	Status     Status
	Err        *Error
	Generation uint64
}

// Loading reports whether a fetch is in flight.
func (s Snapshot[T]) Loading() bool { return s.Status == StatusLoading }

// Option configures a Controller.
type Option[T any] func(*Controller[T])

// WithPageSize sets the page size. Values below 1 are ignored.
func WithPageSize[T any](n int) Option[T] {
	return func(c *Controller[T]) {
		if n > 0 {
			c.state.PageSize = n
		}
	}
}

// WithLogger sets the logger. Stale responses are logged at debug level.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(c *Controller[T]) { c.logger = l }
}

// WithServerSort declares that the data source sorts pages itself, so a sort
// change triggers a refetch instead of a local re-sort.
func WithServerSort[T any]() Option[T] {
	return func(c *Controller[T]) { c.serverSorted = true }
}

// WithServerFilter declares that the data source applies every filter, so
// SortedFilteredView does not filter again.
func WithServerFilter[T any]() Option[T] {
	return func(c *Controller[T]) { c.serverFiltered = true }
}

// WithPartition orders items matching pred before all others, ahead of the
// tiebreak and the requested sort.
func WithPartition[T any](pred func(T) bool) Option[T] {
	return func(c *Controller[T]) { c.partition = PartitionFirst(pred) }
}

// WithTiebreak orders by field in direction before the requested sort.
func WithTiebreak[T any](field string, dir Direction) Option[T] {
	return func(c *Controller[T]) {
		if f, ok := c.schema.Field(field); ok {
			c.tiebreak = KeyOrder[T]{Field: f, Direction: dir}
		}
	}
}

// WithSort sets the initial sort.
func WithSort[T any](field string, dir Direction) Option[T] {
	return func(c *Controller[T]) {
		c.state.Sort = &Sort{Field: field, Direction: dir}
	}
}

// OnChange registers fn to be called after every observable change. Calls are
// serialized and never go back in generation. A change made while fn runs is
// delivered after fn returns, so fn may call the mutators and Fetch. Changes
// that are superseded before delivery are skipped. fn must not call Wait.
func OnChange[T any](fn func(Snapshot[T])) Option[T] {
	return func(c *Controller[T]) { c.onChange = fn }
}

// Controller mediates between list controls and a data source for one view.
type Controller[T any] struct {
	source         DataSource[T]
	scope          Scope
	schema         *Schema[T]
	logger         *slog.Logger
	serverSorted   bool
	serverFiltered bool
	partition      Order[T]
	tiebreak       Order[T]
	onChange       func(Snapshot[T])

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      QueryState
	items      []T
	status     Status
	err        *Error
	generation uint64
	issued     uint64 // sequence number of the newest fetch issued
	applied    uint64 // sequence number of the newest fetch applied
	inflight   int
	idle       chan struct{} // closed when inflight drops to zero
	closed     bool

	notifyMu    sync.Mutex
	notified    uint64
	pending     *Snapshot[T]
	dispatching bool
}

// New creates a controller in the Idle state. No fetch is issued until Fetch
// or a mutator is called.
func New[T any](source DataSource[T], scope Scope, schema *Schema[T], opts ...Option[T]) *Controller[T] {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T]{
		source: source,
		scope:  scope,
		schema: schema,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
		state:  NewQueryState(DefaultPageSize),
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetFilter sets or, for a null value, clears the filter on field and goes
// back to page 1. Setting the value already in place does nothing.
func (c *Controller[T]) SetFilter(field string, value FilterValue) error {
	if err := c.validateFilter(field, value); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	if c.state.Filters[field] == value {
		c.mu.Unlock()
		return nil
	}
	if value.IsNull() {
		delete(c.state.Filters, field)
	} else {
		c.state.Filters[field] = value
	}
	c.state.Page = 1
	c.issueLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetSort sorts by field ascending, or flips the direction if field is
// already the sort field. The page is kept. A server-sorted source is
// refetched; otherwise only the local view changes.
func (c *Controller[T]) SetSort(field string) error {
	if field == "" {
		return validationErrorf("sort field is required")
	}
	if c.schema != nil {
		f, ok := c.schema.Field(field)
		if !ok || !f.Sortable {
			return validationErrorf("field %q is not sortable", field)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	if c.state.Sort != nil && c.state.Sort.Field == field {
		c.state.Sort = &Sort{Field: field, Direction: c.state.Sort.Direction.Flip()}
	} else {
		c.state.Sort = &Sort{Field: field, Direction: Asc}
	}
	if c.serverSorted {
		c.issueLocked()
	} else {
		c.generation++
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetPage moves to page, clamped to [1, LastPage]. No fetch is issued when the
// clamped page is the current page.
func (c *Controller[T]) SetPage(page int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	if page < 1 {
		page = 1
	}
	if last := c.state.LastPage(); page > last {
		page = last
	}
	if page == c.state.Page {
		c.mu.Unlock()
		return nil
	}
	c.state.Page = page
	c.issueLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetPageSize changes the page size and goes back to page 1.
func (c *Controller[T]) SetPageSize(n int) error {
	if n <= 0 {
		return validationErrorf("page size must be positive, got %d", n)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	if n == c.state.PageSize {
		c.mu.Unlock()
		return nil
	}
	c.state.PageSize = n
	c.state.Page = 1
	c.issueLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Fetch issues a fetch for the current state and waits until it has been
// applied or discarded. The returned error is the structured error of this
// fetch, if it was applied and failed. Calling Fetch again retries.
func (c *Controller[T]) Fetch(ctx context.Context) (Snapshot[T], error) {
	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, errClosed
	}
	done := c.issueLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	select {
	case ferr := <-done:
		if ferr != nil {
			return c.Snapshot(), ferr
		}
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), Normalize(ctx.Err())
	}
}

// Wait blocks until no fetch is in flight.
func (c *Controller[T]) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SortedFilteredView returns the current items with local filtering and
// ordering applied. Filtering is skipped for server-filtered sources; the
// partition, tiebreak and requested sort are skipped for server-sorted
// sources. The stored items are never reordered.
func (c *Controller[T]) SortedFilteredView() []T {
	c.mu.Lock()
	items := c.items
	state := c.state.Clone()
	c.mu.Unlock()

	view := items
	if !c.serverFiltered && c.schema != nil {
		view = FilterItems(view, c.schema, state.Filters)
	}
	if c.serverSorted {
		out := make([]T, len(view))
		copy(out, view)
		return out
	}
	return StableSort(view, c.orderFor(state.Sort))
}

// orderFor composes partition, tiebreak and requested sort, in that order.
func (c *Controller[T]) orderFor(s *Sort) Order[T] {
	var orders Orders[T]
	if c.partition != nil {
		orders = append(orders, c.partition)
	}
	if c.tiebreak != nil {
		orders = append(orders, c.tiebreak)
	}
	if s != nil {
		if f, ok := c.schema.Field(s.Field); ok && f.Get != nil {
			orders = append(orders, KeyOrder[T]{Field: f, Direction: s.Direction})
		}
	}
	return orders
}

// Close tears the controller down. Responses still in flight are discarded
// and later mutator calls fail.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller[T]) validateFilter(field string, value FilterValue) error {
	if field == "" {
		return validationErrorf("filter field is required")
	}
	if c.schema == nil {
		return nil
	}
	f, ok := c.schema.Field(field)
	if !ok || !f.Filterable {
		return validationErrorf("field %q is not filterable", field)
	}
	if value.Kind() == FilterEnum && len(f.Enum) > 0 {
		for _, allowed := range f.Enum {
			if value.String() == allowed {
				return nil
			}
		}
		return validationErrorf("invalid value %q for %s", value.String(), field)
	}
	return nil
}

// issueLocked starts a fetch for the current state. c.mu must be held.
func (c *Controller[T]) issueLocked() <-chan *Error {
	c.issued++
	seq := c.issued
	c.status = StatusLoading
	c.generation++
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++

	done := make(chan *Error, 1)
	go c.run(seq, c.state.Clone(), done)
	return done
}

func (c *Controller[T]) run(seq uint64, state QueryState, done chan<- *Error) {
	res, qerr := c.query(seq, state)

	c.mu.Lock()
	if c.closed {
		c.finishLocked()
		c.mu.Unlock()
		done <- nil
		return
	}
	if seq <= c.applied {
		c.logger.Debug("discarding stale list response",
			"kind", KindStale, "seq", seq, "applied", c.applied, "tenant", c.scope.Tenant)
		c.finishLocked()
		c.mu.Unlock()
		done <- nil
		return
	}

	c.applied = seq
	var ferr *Error
	if qerr != nil {
		ferr = Normalize(qerr)
		c.err = ferr
		c.status = StatusError
		c.logger.Warn("list fetch failed", "kind", ferr.Kind, "error", ferr.Message, "tenant", c.scope.Tenant)
	} else {
		c.items = res.Items
		c.state.Total = res.Total
		c.err = nil
		c.status = StatusSuccess
		// A shrunken collection may leave the page past the end.
		if c.state.Total > 0 && c.state.Page > c.state.LastPage() {
			c.state.Page = c.state.LastPage()
			c.issueLocked()
		}
	}
	if c.applied < c.issued {
		c.status = StatusLoading
	}
	c.generation++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	// The fetch counts as in flight until its snapshot has been handed to
	// OnChange.
	c.notify(snap)
	c.mu.Lock()
	c.finishLocked()
	c.mu.Unlock()
	done <- ferr
}

// finishLocked marks one fetch as done. c.mu must be held.
func (c *Controller[T]) finishLocked() {
	c.inflight--
	if c.inflight == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return Snapshot[T]{
		State:      c.state.Clone(),
		Items:      items,
		Status:     c.status,
		Err:        c.err,
		Generation: c.generation,
	}
}

// query calls the data source, turning a panic into a network error so the
// last good page stays in place.
func (c *Controller[T]) query(seq uint64, state QueryState) (res FetchResult[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("list data source panicked", "panic", r, "seq", seq, "tenant", c.scope.Tenant)
			res, err = FetchResult[T]{}, &Error{Kind: KindNetwork, Message: fmt.Sprintf("data source panicked: %v", r)}
		}
	}()
	return c.source.Query(c.ctx, c.scope, state)
}

// notify queues snap for OnChange. The first caller to find no delivery in
// progress runs the callback, outside notifyMu, until the queue is empty;
// other callers, including ones made from inside the callback, only queue.
func (c *Controller[T]) notify(snap Snapshot[T]) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	if snap.Generation <= c.notified || (c.pending != nil && snap.Generation <= c.pending.Generation) {
		c.notifyMu.Unlock()
		return
	}
	c.pending = &snap
	if c.dispatching {
		c.notifyMu.Unlock()
		return
	}
	c.dispatching = true
	c.notifyMu.Unlock()

	c.dispatch()
}

func (c *Controller[T]) dispatch() {
	c.notifyMu.Lock()
	defer func() {
		c.dispatching = false
		c.notifyMu.Unlock()
	}()
	for c.pending != nil {
		next := *c.pending
		c.pending = nil
		c.notified = next.Generation

		func() {
			c.notifyMu.Unlock()
			defer c.notifyMu.Lock()
			c.onChange(next)
		}()
	}
}
