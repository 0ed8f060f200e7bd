//go:build darwin

package main

import "golang.design/x/hotkey/mainthread"

// onMainThread hands the process main thread to Cocoa, which the global
// hotkey service needs, and runs fn on another goroutine.
func onMainThread(fn func()) {
	mainthread.Init(fn)
}
