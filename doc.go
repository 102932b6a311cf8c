// Package dataflock implements a reactive cell-graph engine.
//
// # Overview
//
// Users submit code cells that declare their inputs and outputs implicitly
// through variable references and assignments. The engine statically
// analyzes each cell, wires it into a dataflow graph keyed by variable
// name, and whenever a cell's output may have changed, schedules every
// downstream cell to re-execute in a sandboxed interpreter, respecting
// dependency order and never running a cell against stale inputs.
//
// dataflock organizes code around four collaborating packages:
//
//  1. analysis: statically determines a cell's free (read) and assigned
//     (write) variable names from its source text.
//  2. graph: a bidirectional producer/consumer index keyed by variable
//     name, with cycle detection over the induced dataflow edges.
//  3. kernel: the contract a sandboxed interpreter must satisfy — run code
//     against a projected namespace, read a single value back, restart.
//  4. runner: the state machine that owns a graph, a kernel handle, and the
//     dirty/running bookkeeping that makes re-execution order-correct.
//
// registry ties many runners together under names ("environments").
//
// # Basic usage
//
//	k := kernel.New()
//	k.Register("a = 1", func(map[string]any) (map[string]any, error) {
//	    return map[string]any{"a": 1}, nil
//	})
//	k.Register("b = a + 1", func(in map[string]any) (map[string]any, error) {
//	    return map[string]any{"b": in["a"].(int) + 1}, nil
//	})
//	r := runner.New(runner.WithKernel(k))
//
//	c1, _ := analysis.Analyze("a = 1")
//	id1, _ := r.Create(c1, true)
//
//	c2, _ := analysis.Analyze("b = a + 1")
//	id2, _ := r.Create(c2, true)
//
// The in-memory kernel only runs code registered with it. Creating c1
// schedules it to run; once the kernel finishes it successfully, b's
// producer (c2) becomes eligible to run because its only upstream producer
// (c1, which writes a) is now clean. Updating a cell re-links it into the graph and reschedules its
// descendants by the same rule.
//
// # Observability
//
// Runner reports every state transition synchronously through a callback
// sink rather than a logging dependency:
//
//	r.SetCallback(func(ev runner.Event) {
//	    switch e := ev.(type) {
//	    case runner.RunningEvent:
//	        fmt.Println("running", e.CellID)
//	    case runner.FinishedEvent:
//	        fmt.Println("finished", e.CellID, e.Err)
//	    }
//	})
//
// # Environments
//
// A Registry holds many independent runners by name:
//
//	reg := registry.New()
//	env, _ := reg.Create("notebook-1")
//	env.SetDryrun() // useful in tests: link cells without dispatching to the kernel
package dataflock
