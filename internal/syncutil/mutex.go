//go:build !deadlock

// Package syncutil provides the lock that gives a tag session exclusive use
// of its card channel. Build with -tags=deadlock to swap in
// github.com/sasha-s/go-deadlock and report lock-order problems.
package syncutil

import "sync"

// Mutex wraps sync.Mutex.
//
//nolint:gocritic // embedding exposes Lock/Unlock
type Mutex struct {
	sync.Mutex
}
