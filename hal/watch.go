// watch.go - single-producer, last-value-wins broadcast with edge detection
//
// Stands in for tokio::sync::watch, which the original driver relies on so
// that submit_commands can pre-acknowledge a stale completion before
// issuing a new one. Built on sync.Cond plus a generation counter: every
// Broadcast bumps the generation, every Wait blocks until the generation
// it last observed has moved.

package hal

import "sync"

// Watch is a single-producer broadcast channel. Zero value is not usable;
// construct with NewWatch.
type Watch struct {
	mu  sync.Mutex
	cnd *sync.Cond
	gen uint64
}

// NewWatch returns a ready-to-use Watch.
func NewWatch() *Watch {
	w := &Watch{}
	w.cnd = sync.NewCond(&w.mu)
	return w
}

// Broadcast publishes a new value, waking every blocked Wait.
func (w *Watch) Broadcast() {
	w.mu.Lock()
	w.gen++
	w.mu.Unlock()
	w.cnd.Broadcast()
}

// Cursor tracks one consumer's last-observed generation.
type Cursor struct {
	w   *Watch
	gen uint64
}

// Cursor returns a new consumer cursor, initialized to the watch's current
// generation (i.e. it will not see a Broadcast that already happened).
func (w *Watch) Cursor() *Cursor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &Cursor{w: w, gen: w.gen}
}

// Wait blocks until the watch has been broadcast at least once since this
// cursor last observed it, then advances the cursor.
func (c *Cursor) Wait() {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	for c.w.gen == c.gen {
		c.w.cnd.Wait()
	}
	c.gen = c.w.gen
}

// Acknowledge advances the cursor to the watch's current generation without
// waiting, so a subsequent Wait blocks until the *next* broadcast. Used by
// submit_commands to pre-acknowledge any stale completion before kicking
// off a new submission.
func (c *Cursor) Acknowledge() {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	c.gen = c.w.gen
}
