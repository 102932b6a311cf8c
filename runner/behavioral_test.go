package runner

import "testing"

// These scenarios exercise the same sequences as the reference
// implementation's own behavioral test suite. Since the Runner runs in
// dryrun mode here, a kernel call never actually completes on its own —
// tests drive completion by calling onFinished directly, the same way the
// source drives it by calling on_cell_run_finished directly.

func TestCreatingALiveChainLeavesEveryCellDirty(t *testing.T) {
	r := New(WithDryrun())

	id1, _ := r.Create(cell("a = 1", nil, []string{"a"}), true)
	id2, _ := r.Create(cell("b = a + 1", []string{"a"}, []string{"b"}), true)
	id3, _ := r.Create(cell("c = b", []string{"b"}, []string{"c"}), true)

	for _, id := range []string{id1, id2, id3} {
		if !r.IsDirty(id) {
			t.Fatalf("expected %s to be dirty after creating the whole chain live", id)
		}
	}
}

func TestCreatingALiveFanOutLeavesEveryCellDirty(t *testing.T) {
	r := New(WithDryrun())

	id1, _ := r.Create(cell("a = 1", nil, []string{"a"}), true)
	id2, _ := r.Create(cell("b = a + 1", []string{"a"}, []string{"b"}), true)
	id3, _ := r.Create(cell("c = b", []string{"b"}, []string{"c"}), true)
	id4, _ := r.Create(cell("d = b", []string{"b"}, []string{"d"}), true)

	for _, id := range []string{id1, id2, id3, id4} {
		if !r.IsDirty(id) {
			t.Fatalf("expected %s to be dirty", id)
		}
	}
}

func TestRunTracksDirtyAndRunningThroughCompletion(t *testing.T) {
	r := New(WithDryrun())

	id1, _ := r.Create(cell("a = 1", nil, []string{"a"}), false)
	id2, _ := r.Create(cell("b = a + 1", []string{"a"}, []string{"b"}), true)
	r.onFinished(id2, nil)

	if err := r.Run(id1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !r.IsRunning(id1) {
		t.Fatalf("expected id1 to be running")
	}
	if r.IsRunning(id2) {
		t.Fatalf("expected id2 to not be running yet")
	}
	if !r.IsDirty(id1) || !r.IsDirty(id2) {
		t.Fatalf("expected both id1 and id2 to be dirty")
	}

	r.onFinished(id1, nil)

	if r.IsRunning(id1) {
		t.Fatalf("expected id1 to no longer be running")
	}
	if !r.IsRunning(id2) {
		t.Fatalf("expected id2 to start running once id1 (its only dirty producer) finished")
	}
	if r.IsDirty(id1) {
		t.Fatalf("expected id1 to no longer be dirty")
	}
	if !r.IsDirty(id2) {
		t.Fatalf("expected id2 to still be dirty while it runs")
	}

	r.onFinished(id2, nil)

	if r.IsRunning(id1) || r.IsRunning(id2) {
		t.Fatalf("expected nothing running once both have finished")
	}
	if r.IsDirty(id1) || r.IsDirty(id2) {
		t.Fatalf("expected nothing dirty once both have finished")
	}
}

func TestRunParallelRespectsTheDependencyDirtyBarrier(t *testing.T) {
	r := New(WithDryrun())

	id1, _ := r.Create(cell("a = 1", nil, []string{"a"}), false)
	id2, _ := r.Create(cell("b = a + 1", []string{"a"}, []string{"b"}), true)
	r.onFinished(id2, nil)
	id3, _ := r.Create(cell("c = a + 1", []string{"a"}, []string{"c"}), true)
	r.onFinished(id3, nil)
	id4, _ := r.Create(cell("d = b + c", []string{"b", "c"}, []string{"d"}), true)
	r.onFinished(id4, nil)

	if err := r.Run(id1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !r.IsRunning(id1) {
		t.Fatalf("expected id1 running")
	}
	for _, id := range []string{id2, id3, id4} {
		if r.IsRunning(id) {
			t.Fatalf("expected %s not running yet", id)
		}
	}
	for _, id := range []string{id1, id2, id3, id4} {
		if !r.IsDirty(id) {
			t.Fatalf("expected %s dirty", id)
		}
	}

	r.onFinished(id1, nil)

	if !r.IsRunning(id2) || !r.IsRunning(id3) {
		t.Fatalf("expected id2 and id3 running once id1 finished")
	}
	if r.IsRunning(id1) || r.IsRunning(id4) {
		t.Fatalf("expected id1 and id4 not running")
	}
	if r.IsDirty(id1) {
		t.Fatalf("expected id1 no longer dirty")
	}
	for _, id := range []string{id2, id3, id4} {
		if !r.IsDirty(id) {
			t.Fatalf("expected %s still dirty", id)
		}
	}

	r.onFinished(id2, nil)

	if !r.IsRunning(id3) {
		t.Fatalf("expected id3 still running")
	}
	if r.IsRunning(id4) {
		t.Fatalf("expected id4 not running until id3 also finishes: it reads both b and c")
	}
	if r.IsDirty(id1) || r.IsDirty(id2) {
		t.Fatalf("expected id1 and id2 no longer dirty")
	}

	r.onFinished(id3, nil)

	if !r.IsRunning(id4) {
		t.Fatalf("expected id4 running once both its producers finished")
	}

	r.onFinished(id4, nil)

	for _, id := range []string{id1, id2, id3, id4} {
		if r.IsRunning(id) || r.IsDirty(id) {
			t.Fatalf("expected %s neither running nor dirty", id)
		}
	}
}

func TestLiveCellsChainAutomaticallyOnCompletion(t *testing.T) {
	r := New(WithDryrun())

	id1, _ := r.Create(cell("a = 1", nil, []string{"a"}), true)
	id2, _ := r.Create(cell("b = a + 1", []string{"a"}, []string{"b"}), false)
	id3, _ := r.Create(cell("c = b + 1", []string{"b"}, []string{"c"}), true)
	r.onFinished(id3, nil)

	if !r.IsRunning(id1) {
		t.Fatalf("expected id1 to start running immediately: it's live with no dependencies")
	}
	r.onFinished(id1, nil)
	if r.IsRunning(id1) || r.IsRunning(id2) {
		t.Fatalf("expected id1 finished and id2 to stay put: id2 is not live")
	}

	if err := r.Run(id2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !r.IsRunning(id2) {
		t.Fatalf("expected id2 running after an explicit Run")
	}

	r.onFinished(id2, nil)
	if !r.IsRunning(id3) {
		t.Fatalf("expected id3, live and reading b, to start once id2 finished")
	}
}
