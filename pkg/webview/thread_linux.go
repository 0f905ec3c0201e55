//go:build linux

package webview

import "golang.org/x/sys/unix"

func currentThread() ThreadID {
	return ThreadID(unix.Gettid())
}
