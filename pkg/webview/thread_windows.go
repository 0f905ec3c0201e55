//go:build windows

package webview

import "golang.org/x/sys/windows"

func currentThread() ThreadID {
	return ThreadID(windows.GetCurrentThreadId())
}
