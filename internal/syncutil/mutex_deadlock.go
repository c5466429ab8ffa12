//go:build deadlock

// Package syncutil provides the lock that gives a tag session exclusive use
// of its card channel. This file is compiled with -tags=deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex wraps deadlock.Mutex.
type Mutex struct {
	deadlock.Mutex
}
