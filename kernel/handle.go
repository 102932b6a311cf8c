// Package kernel defines the contract a sandboxed interpreter must satisfy
// to back a Runner, and ships an in-memory reference implementation for
// tests and embedders that don't need a real interpreter process.
package kernel

import "context"

// Handle is the boundary between a Runner and whatever actually executes
// cell code. A real implementation talks to a sandboxed Python process over
// some transport; Run blocking until execution completes is the idiomatic
// Go shape for that round trip — the caller supplies the concurrency (a
// goroutine supervised by an errgroup) rather than Handle itself returning
// a future.
type Handle interface {
	// Run executes code against the namespace, reading only the names in
	// reads and publishing only the names in writes back to the namespace.
	// A name in reads that the namespace doesn't have is a *KernelNameError;
	// an error or panic raised by code itself is a *KernelExecError.
	Run(ctx context.Context, code string, reads, writes []string) error

	// Get reads a single value out of the namespace. It returns
	// *KernelNameError if name was never written.
	Get(name string) (any, error)

	// Restart discards the namespace and starts from empty.
	Restart()
}
