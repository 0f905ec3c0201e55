package webview

// ThreadID identifies an operating-system thread.
type ThreadID uint64

// CurrentThread returns the identity of the calling thread.
//
// The value is only stable for goroutines pinned with runtime.LockOSThread;
// any goroutine that owns a view handle must be pinned for its whole lifetime.
func CurrentThread() ThreadID {
	return currentThread()
}
