package runner

import "context"

// scheduleRun marks cellID (and everything transitively downstream of it)
// dirty, marks cellID running, and — unless the Runner is in dryrun mode —
// dispatches its kernel call on a goroutine supervised by the Runner's
// errgroup so independent sibling cells can run concurrently; the group has
// no shared context, so one cell's kernel error does not cancel the others.
//
// Bookkeeping happens before the goroutine is started, not after, unlike
// the asyncio source this is grounded on, which adds to _running only after
// creating its task and relies on asyncio not starting that task before
// the caller yields. Go goroutines offer no such cooperative-scheduling
// guarantee, so doing it the source's way here would race with a fast
// kernel finishing before the Runner ever recorded the cell as running.
func (r *Runner) scheduleRun(cellID string) {
	r.mu.Lock()
	cell, ok := r.cells[cellID]
	if !ok {
		r.mu.Unlock()
		return
	}
	live := r.live[cellID]
	dependents := r.graph.Dependents(cellID)

	r.running[cellID] = struct{}{}
	r.dirty[cellID] = struct{}{}
	for _, d := range dependents {
		r.dirty[d] = struct{}{}
	}

	dryrun := r.dryrun
	reads := cell.ReadNames()
	writes := cell.WriteNames()
	code := cell.Code
	cb := r.callback
	r.mu.Unlock()

	cb(RunningEvent{CellID: cellID, Live: live})
	cb(DirtiedEvent{CellID: cellID})
	for _, d := range dependents {
		cb(DirtiedEvent{CellID: d})
	}

	if dryrun {
		return
	}

	r.eg.Go(func() error {
		err := r.kernel.Run(context.Background(), code, reads, writes)
		r.onFinished(cellID, err)
		return err
	})
}

// onFinished is the kernel-call completion callback: it clears cellID's
// running/dirty bookkeeping and, if the run succeeded, reports the variables
// it just published and schedules every direct dependent whose own upstream
// producers are all clean — the dependency-dirty barrier that keeps a cell
// from ever running against a stale input. After a failed run nothing is
// scheduled and the dependents stay dirty.
func (r *Runner) onFinished(cellID string, runErr error) {
	r.mu.Lock()
	delete(r.running, cellID)
	delete(r.dirty, cellID)
	cell, stillExists := r.cells[cellID]
	var candidates []string
	if stillExists {
		candidates = r.graph.DirectDependents(cellID)
	}
	cb := r.callback
	r.mu.Unlock()

	cb(FinishedEvent{CellID: cellID, Err: runErr})
	if !stillExists || runErr != nil {
		return
	}
	for _, w := range cell.WriteNames() {
		cb(VariableUpdatedEvent{Name: w})
	}

	for _, target := range candidates {
		r.runIfReady(target)
	}
}

// runIfReady schedules target only if every variable it reads either has
// no producer cell (an externally supplied value, never blocking) or a
// producer that is not currently dirty.
func (r *Runner) runIfReady(target string) {
	r.mu.Lock()
	cell, ok := r.cells[target]
	if !ok {
		r.mu.Unlock()
		return
	}
	ready := true
	for _, name := range cell.ReadNames() {
		producer, hasProducer := r.graph.ProducerOf(name)
		if !hasProducer {
			continue
		}
		if _, dirty := r.dirty[producer]; dirty {
			ready = false
			break
		}
	}
	live := r.live[target]
	r.mu.Unlock()

	if ready && live {
		r.scheduleRun(target)
	}
}
