//go:build !linux && !windows

package webview

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThread falls back to the goroutine id where no portable thread id
// syscall is exposed. The value is not an OS thread id and lives in a different
// number space; it only stands in for thread identity. A goroutine pinned with
// runtime.LockOSThread keeps the same id for as long as it stays pinned, so
// ownership checks against the main loop goroutine still hold.
func currentThread() ThreadID {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(field, ' '); i > 0 {
		field = field[:i]
	}
	id, err := strconv.ParseUint(string(field), 10, 64)
	if err != nil {
		return 0
	}
	return ThreadID(id)
}
