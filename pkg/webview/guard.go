package webview

import "sync"

// guard is a mutex-protected value that refuses further access once a
// critical section panicked while holding it.
type guard[T any] struct {
	mu       sync.Mutex
	poisoned bool
	name     string
	val      T
}

func (g *guard[T]) init(name string, val T) {
	g.name = name
	g.val = val
}

// with runs fn with exclusive access to the value. A panic in fn poisons the
// guard and keeps propagating; later calls fail with ErrInternal.
func (g *guard[T]) with(fn func(v *T)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		return internal(g.name + " lock poisoned")
	}

	completed := false
	defer func() {
		if !completed {
			g.poisoned = true
		}
	}()

	fn(&g.val)
	completed = true
	return nil
}
