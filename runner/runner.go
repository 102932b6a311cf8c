// Package runner implements the reactive cell-graph state machine: it owns
// a dataflow graph, a kernel handle, and the dirty/running bookkeeping that
// decides which cell runs next and when.
package runner

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dataflock "github.com/luciotorre/dataflock"
	"github.com/luciotorre/dataflock/graph"
	"github.com/luciotorre/dataflock/kernel"
)

// Runner is a single reactive environment: a set of cells wired into a
// dataflow graph by the variable names they read and write, a kernel that
// actually executes them, and the dirty/running state that makes
// re-execution order-correct. The zero value is not usable; build one with
// New.
type Runner struct {
	mu sync.Mutex

	cells   map[string]dataflock.Cell
	live    map[string]bool
	dirty   map[string]struct{}
	running map[string]struct{}
	graph   *graph.Index

	kernel   kernel.Handle
	dryrun   bool
	callback func(Event)

	eg errgroup.Group
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithKernel supplies the kernel a Runner dispatches cell bodies to. If
// omitted, an in-memory reference kernel is used.
func WithKernel(h kernel.Handle) Option {
	return func(r *Runner) { r.kernel = h }
}

// WithCallback registers the sink a Runner reports every state transition
// to, synchronously, from whichever goroutine reaches it.
func WithCallback(cb func(Event)) Option {
	return func(r *Runner) { r.callback = cb }
}

// WithDryrun starts the Runner in dryrun mode: cells link into the graph
// and are marked running/dirty exactly as they would be normally, but no
// cell body is ever dispatched to the kernel. Useful for exercising the
// graph's wiring in a test without a real interpreter on the other end.
func WithDryrun() Option {
	return func(r *Runner) { r.dryrun = true }
}

// New returns a Runner with no cells.
func New(opts ...Option) *Runner {
	r := &Runner{
		cells:    make(map[string]dataflock.Cell),
		live:     make(map[string]bool),
		dirty:    make(map[string]struct{}),
		running:  make(map[string]struct{}),
		graph:    graph.New(),
		callback: func(Event) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.kernel == nil {
		r.kernel = kernel.New()
	}
	return r
}

// Create links a new, already analyzed cell, assigning it a fresh ID, and
// schedules it to run if live is true. It fails without any effect if the
// cell's writes collide with an existing cell's, or would close a cycle.
func (r *Runner) Create(cell dataflock.Cell, live bool) (string, error) {
	reads := cell.ReadNames()
	writes := cell.WriteNames()
	id := uuid.NewString()

	r.mu.Lock()
	if clashes := r.graph.Conflicts(id, writes); len(clashes) > 0 {
		r.mu.Unlock()
		return "", &dataflock.DuplicateNameError{Names: clashes}
	}
	if r.graph.WouldCycle(id, reads, writes) {
		r.mu.Unlock()
		return "", &dataflock.LoopError{CellWrites: writes}
	}
	if err := r.graph.Link(id, reads, writes); err != nil {
		r.mu.Unlock()
		return "", err
	}
	r.cells[id] = cell
	r.live[id] = live
	cb := r.callback
	r.mu.Unlock()

	cb(CreatedEvent{CellID: id, Live: live, Code: cell.Code})
	if live {
		r.scheduleRun(id)
	}
	return id, nil
}

// Update replaces cellID's cell body and re-links it, checking for a cycle
// against the graph with cellID's OLD links already removed — a cell that
// reads a name it used to write itself is not a loop against its own prior
// version. On any failure the old links are restored and the cell is left
// unchanged.
func (r *Runner) Update(cellID string, cell dataflock.Cell, live bool) error {
	reads := cell.ReadNames()
	writes := cell.WriteNames()

	r.mu.Lock()
	old, existed := r.cells[cellID]
	if !existed {
		r.mu.Unlock()
		return &dataflock.UnknownCellError{CellID: cellID}
	}
	r.graph.Unlink(cellID, old.ReadNames(), old.WriteNames())

	restore := func() {
		_ = r.graph.Link(cellID, old.ReadNames(), old.WriteNames())
	}

	if clashes := r.graph.Conflicts(cellID, writes); len(clashes) > 0 {
		restore()
		r.mu.Unlock()
		return &dataflock.DuplicateNameError{Names: clashes}
	}
	if r.graph.WouldCycle(cellID, reads, writes) {
		restore()
		r.mu.Unlock()
		return &dataflock.LoopError{CellWrites: writes}
	}
	if err := r.graph.Link(cellID, reads, writes); err != nil {
		restore()
		r.mu.Unlock()
		return err
	}

	r.cells[cellID] = cell
	r.live[cellID] = live
	cb := r.callback
	r.mu.Unlock()

	cb(UpdatedEvent{CellID: cellID, Live: live, Code: cell.Code})
	if live {
		r.scheduleRun(cellID)
	}
	return nil
}

// Delete removes a cell and its links. It also clears any dirty/running
// bookkeeping for it — the source this module is grounded on leaves those
// entries stuck after a delete, which this Runner treats as a bug rather
// than a behavior to preserve.
func (r *Runner) Delete(cellID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cell, ok := r.cells[cellID]
	if !ok {
		return &dataflock.UnknownCellError{CellID: cellID}
	}
	r.graph.Unlink(cellID, cell.ReadNames(), cell.WriteNames())
	delete(r.cells, cellID)
	delete(r.live, cellID)
	delete(r.dirty, cellID)
	delete(r.running, cellID)
	return nil
}

// Get returns the cell registered under cellID.
func (r *Runner) Get(cellID string) (dataflock.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cell, ok := r.cells[cellID]
	if !ok {
		return dataflock.Cell{}, &dataflock.UnknownCellError{CellID: cellID}
	}
	return cell, nil
}

// List returns every registered cell ID, in no particular order.
func (r *Runner) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.cells))
	for id := range r.cells {
		out = append(out, id)
	}
	return out
}

// Run schedules cellID to execute immediately, regardless of its live flag
// or current dirty state.
func (r *Runner) Run(cellID string) error {
	r.mu.Lock()
	if _, ok := r.cells[cellID]; !ok {
		r.mu.Unlock()
		return &dataflock.UnknownCellError{CellID: cellID}
	}
	r.mu.Unlock()
	r.scheduleRun(cellID)
	return nil
}

// GetVariable reads a single value out of the kernel's namespace.
func (r *Runner) GetVariable(name string) (any, error) {
	return r.kernel.Get(name)
}

// Exposes returns the cell ID currently producing name, if any.
func (r *Runner) Exposes(name string) (string, bool) {
	return r.graph.ProducerOf(name)
}

// Depends returns the cell IDs currently reading name.
func (r *Runner) Depends(name string) []string {
	return r.graph.ConsumersOf(name)
}

// IsDirty reports whether cellID is currently dirty: it, or an upstream
// producer of something it reads, has been scheduled to run and hasn't
// finished yet.
func (r *Runner) IsDirty(cellID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.dirty[cellID]
	return ok
}

// IsRunning reports whether cellID's kernel call is currently in flight.
func (r *Runner) IsRunning(cellID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[cellID]
	return ok
}

// SetCallback replaces the Runner's event sink.
func (r *Runner) SetCallback(cb func(Event)) {
	if cb == nil {
		cb = func(Event) {}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = cb
}

// SetDryrun puts the Runner into dryrun mode. There is no way back —
// matching the reference implementation's own one-way set_dryrun.
func (r *Runner) SetDryrun() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dryrun = true
}

// Wait blocks until every kernel call dispatched so far has finished. It
// exists for tests: normal operation never needs to wait, since every
// transition is reported through the callback as it happens.
func (r *Runner) Wait() error {
	return r.eg.Wait()
}
