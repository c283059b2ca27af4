// internal/store/memstore/memstore.go
package memstore

import (
	"sync"
)

// watcher delivers latest-wins over a 1-buffered channel: a slow consumer
// only ever misses intermediate states, never the newest one.
type watcher[T any] struct {
	ch     chan T
	closed bool
}

func newWatcher[T any]() *watcher[T] {
	return &watcher[T]{ch: make(chan T, 1)}
}

func (w *watcher[T]) push(v T) {
	if w.closed {
		return
	}
	for {
		select {
		case w.ch <- v:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

func (w *watcher[T]) close() {
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// once-guarded cancel helper shared by both stores.
func cancelOnce(fn func()) func() {
	var once sync.Once
	return func() { once.Do(fn) }
}
