// Package gtkview backs views with WebKitGTK 6. It is only built with the
// webkit_cgo tag; every call must happen on the GTK main thread, which
// IdleDispatcher provides to the host.
package gtkview
