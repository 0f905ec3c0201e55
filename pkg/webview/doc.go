// Package webview keeps thread-affine native view handles behind a registry
// that any goroutine can use.
//
// A handle may only be dereferenced or destroyed on the OS thread that
// registered it; the check happens at runtime on every access. The logical
// state of a view (URL, title, navigation history, pending IPC messages) lives
// in a separate State that is safe to share.
package webview
