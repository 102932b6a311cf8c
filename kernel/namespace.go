package kernel

import "sync"

// namespace is the variable store MemHandle publishes cell writes into. It
// is a straightforward sync.Map wrapper rather than a plain mutex-guarded
// map so that Get (read from many goroutines once a run is live) never
// contends with a Run that is only touching unrelated names.
type namespace struct {
	data sync.Map
}

func newNamespace() *namespace {
	return &namespace{}
}

func (n *namespace) load(name string) (any, bool) {
	return n.data.Load(name)
}

func (n *namespace) store(name string, value any) {
	n.data.Store(name, value)
}

func (n *namespace) reset() {
	n.data.Range(func(key, _ any) bool {
		n.data.Delete(key)
		return true
	})
}
