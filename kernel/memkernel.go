package kernel

import (
	"context"
	"sync"

	dataflock "github.com/luciotorre/dataflock"
)

// Func is a cell body, expressed directly as a Go closure instead of a
// string an interpreter would parse: reads holds every name the Run call
// is allowed to see, and the returned map publishes exactly the names the
// cell declared as writes.
type Func func(reads map[string]any) (writes map[string]any, err error)

// MemHandle is a reference Handle backed by an in-process namespace and a
// registry of Go closures keyed by cell source text. It never runs a real
// interpreter; callers register what a piece of "code" does with Register,
// the way this module's own tests stand in for a sandboxed Python process.
type MemHandle struct {
	ns *namespace

	funcsMu sync.RWMutex
	funcs   map[string]Func
}

// New returns an empty MemHandle.
func New() *MemHandle {
	return &MemHandle{
		ns:    newNamespace(),
		funcs: make(map[string]Func),
	}
}

// Register wires code to fn, so a subsequent Run(ctx, code, ...) call
// dispatches to fn instead of failing with an unknown-code error.
func (h *MemHandle) Register(code string, fn Func) {
	h.funcsMu.Lock()
	defer h.funcsMu.Unlock()
	h.funcs[code] = fn
}

func (h *MemHandle) Run(ctx context.Context, code string, reads, writes []string) (err error) {
	h.funcsMu.RLock()
	fn, ok := h.funcs[code]
	h.funcsMu.RUnlock()
	if !ok {
		return &dataflock.KernelExecError{Payload: "no registered behavior for this cell"}
	}

	in := make(map[string]any, len(reads))
	for _, r := range reads {
		v, present := h.ns.load(r)
		if !present {
			return &dataflock.KernelNameError{Name: r}
		}
		in[r] = v
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	defer func() {
		if p := recover(); p != nil {
			err = &dataflock.KernelExecError{Payload: p}
		}
	}()
	out, err := fn(in)
	if err != nil {
		return &dataflock.KernelExecError{Payload: err}
	}

	for _, w := range writes {
		if v, ok := out[w]; ok {
			h.ns.store(w, v)
		}
	}
	return nil
}

func (h *MemHandle) Get(name string) (any, error) {
	v, ok := h.ns.load(name)
	if !ok {
		return nil, &dataflock.KernelNameError{Name: name}
	}
	return v, nil
}

func (h *MemHandle) Restart() {
	h.ns.reset()
}
