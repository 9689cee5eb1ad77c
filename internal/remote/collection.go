// Package remote keeps an in-memory mirror of a backend collection in sync
// with the REST API: loading/error/message state, optimistic mutations with
// rollback, and reconciliation by reloading after every successful change.
package remote

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNotSupported is returned when a Source lacks the requested operation.
var ErrNotSupported = errors.New("operation not supported by this collection")

// ErrNotFound is returned when a key is not present in the local mirror.
var ErrNotFound = errors.New("item not found in collection")

// Source binds a collection to its backend endpoints. Only List and Key are
// required.
type Source[T any] struct {
	Name   string
	List   func(ctx context.Context) ([]T, error)
	Create func(ctx context.Context, item T) (T, error)
	Update func(ctx context.Context, item T) (T, error)
	Delete func(ctx context.Context, key string) error
	Key    func(item T) string
}

// Messages are the transient status texts set after successful mutations.
type Messages struct {
	Created string
	Updated string
	Removed string
}

// DefaultMessages is used when no Messages option is given.
var DefaultMessages = Messages{
	Created: "Created successfully",
	Updated: "Updated successfully",
	Removed: "Removed successfully",
}

// Snapshot is a copy of a collection's state at one moment.
type Snapshot[T any] struct {
	Items   []T    `json:"items"`
	Loading bool   `json:"loading"`
	Loaded  bool   `json:"loaded"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Version uint64 `json:"version"`
}

// Collection mirrors one scope of a backend collection.
type Collection[T any] struct {
	src        Source[T]
	messages   Messages
	messageTTL time.Duration

	mu       sync.Mutex
	items    []T
	inFlight int
	loaded   bool
	err      string
	message  string
	msgGen   uint64
	msgTimer *time.Timer
	issued   uint64
	applied  uint64
	version  uint64
	subs     map[int]func(Snapshot[T])
	nextSub  int
}

// Option customizes a Collection.
type Option func(*options)

type options struct {
	messages   Messages
	messageTTL time.Duration
}

// WithMessages overrides the success messages.
func WithMessages(m Messages) Option {
	return func(o *options) { o.messages = m }
}

// WithMessageTTL sets how long a status message stays visible.
func WithMessageTTL(d time.Duration) Option {
	return func(o *options) { o.messageTTL = d }
}

// New creates an empty, not yet loaded collection.
func New[T any](src Source[T], opts ...Option) *Collection[T] {
	o := options{messages: DefaultMessages, messageTTL: 4 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{
		src:        src,
		messages:   o.messages,
		messageTTL: o.messageTTL,
		subs:       make(map[int]func(Snapshot[T])),
	}
}

// Snapshot returns a copy of the current state.
func (c *Collection[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Collection[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return Snapshot[T]{
		Items:   items,
		Loading: c.inFlight > 0,
		Loaded:  c.loaded,
		Error:   c.err,
		Message: c.message,
		Version: c.version,
	}
}

// OnChange registers fn to be called after every state change. The returned
// function unregisters it.
func (c *Collection[T]) OnChange(fn func(Snapshot[T])) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Collection[T]) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Reload fetches the full collection and replaces the local mirror. When
// reloads overlap, only the most recently issued one is applied.
func (c *Collection[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.inFlight++
	c.mu.Unlock()
	c.notify()

	items, err := c.src.List(ctx)

	c.mu.Lock()
	c.inFlight--
	if seq < c.applied {
		c.mu.Unlock()
		log.Printf("[remote] %s: discarded stale reload #%d", c.src.Name, seq)
		c.notify()
		return err
	}
	c.applied = seq
	c.version++
	if err != nil {
		c.err = err.Error()
		c.items = nil
	} else {
		c.err = ""
		c.items = items
		c.loaded = true
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		log.Printf("[remote] %s: reload error: %v", c.src.Name, err)
	}
	return err
}

// EnsureLoaded reloads only if the collection has never loaded successfully.
func (c *Collection[T]) EnsureLoaded(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if loaded {
		return nil
	}
	return c.Reload(ctx)
}

// Messages returns the success texts this collection shows.
func (c *Collection[T]) Messages() Messages { return c.messages }

// Find returns the mirrored item with the given key.
func (c *Collection[T]) Find(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if c.src.Key(it) == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Mutate is the shape shared by every mutation: apply patch to the local
// mirror, run call against the backend, then either reconcile with a reload
// and show msg, or undo the patch and show the error. A failed mutation
// only sets the message; Error stays reserved for failed reloads.
func (c *Collection[T]) Mutate(ctx context.Context, patch func([]T) []T, call func(ctx context.Context) error, msg string) error {
	prev, mark := c.patch(patch)

	if err := call(ctx); err != nil {
		c.rollback(prev, mark, err)
		return err
	}

	if msg != "" {
		c.SetMessage(msg)
	}
	c.reconcile(ctx)
	return nil
}

// Create appends item locally, sends it to the backend and reconciles.
// On failure the local mirror is restored to its previous state.
func (c *Collection[T]) Create(ctx context.Context, item T) (T, error) {
	if c.src.Create == nil {
		return item, ErrNotSupported
	}

	created := item
	err := c.Mutate(ctx, Append(item), func(ctx context.Context) error {
		var err error
		created, err = c.src.Create(ctx, item)
		return err
	}, c.messages.Created)
	return created, err
}

// Update replaces the item with the same key locally, sends it to the
// backend and reconciles.
func (c *Collection[T]) Update(ctx context.Context, item T) (T, error) {
	if c.src.Update == nil {
		return item, ErrNotSupported
	}
	if _, ok := c.Find(c.src.Key(item)); !ok {
		return item, ErrNotFound
	}

	updated := item
	err := c.Mutate(ctx, c.Replace(item), func(ctx context.Context) error {
		var err error
		updated, err = c.src.Update(ctx, item)
		return err
	}, c.messages.Updated)
	return updated, err
}

// Remove drops the item with key locally, deletes it on the backend and
// reconciles.
func (c *Collection[T]) Remove(ctx context.Context, key string) error {
	if c.src.Delete == nil {
		return ErrNotSupported
	}

	return c.Mutate(ctx, c.Without(key), func(ctx context.Context) error {
		return c.src.Delete(ctx, key)
	}, c.messages.Removed)
}

// Append is a patch adding item at the end.
func Append[T any](item T) func([]T) []T {
	return func(items []T) []T { return append(items, item) }
}

// Replace is a patch swapping in item for the entry with the same key.
func (c *Collection[T]) Replace(item T) func([]T) []T {
	key := c.src.Key(item)
	return func(items []T) []T {
		for i := range items {
			if c.src.Key(items[i]) == key {
				items[i] = item
			}
		}
		return items
	}
}

// Without is a patch dropping the entry with key.
func (c *Collection[T]) Without(key string) func([]T) []T {
	return func(items []T) []T {
		kept := items[:0]
		for _, it := range items {
			if c.src.Key(it) != key {
				kept = append(kept, it)
			}
		}
		return kept
	}
}

// SetMessage shows msg until the message TTL elapses or another message replaces it.
func (c *Collection[T]) SetMessage(msg string) {
	c.mu.Lock()
	c.message = msg
	c.msgGen++
	gen := c.msgGen
	if c.msgTimer != nil {
		c.msgTimer.Stop()
	}
	c.msgTimer = time.AfterFunc(c.messageTTL, func() {
		c.mu.Lock()
		if c.msgGen != gen {
			c.mu.Unlock()
			return
		}
		c.message = ""
		c.mu.Unlock()
		c.notify()
	})
	c.mu.Unlock()
	c.notify()
}

// Close stops the message timer.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	if c.msgTimer != nil {
		c.msgTimer.Stop()
	}
	c.mu.Unlock()
}

// patch applies fn to a copy of the items. It returns the previous slice and
// the sequence of the last applied reload at that moment.
func (c *Collection[T]) patch(fn func([]T) []T) ([]T, uint64) {
	c.mu.Lock()
	prev := c.items
	mark := c.applied
	next := make([]T, len(prev))
	copy(next, prev)
	c.items = fn(next)
	c.version++
	c.mu.Unlock()
	c.notify()
	return prev, mark
}

// rollback restores prev unless a reload was applied while the call ran.
// That reload already replaced the patched items with the backend's list,
// which is newer than prev.
func (c *Collection[T]) rollback(prev []T, mark uint64, err error) {
	log.Printf("[remote] %s: mutation failed, rolling back: %v", c.src.Name, err)
	c.mu.Lock()
	if c.applied == mark {
		c.items = prev
		c.version++
	}
	c.mu.Unlock()
	c.SetMessage("Error: " + err.Error())
}

func (c *Collection[T]) reconcile(ctx context.Context) {
	if err := c.Reload(ctx); err != nil {
		log.Printf("[remote] %s: reconcile after mutation failed: %v", c.src.Name, err)
	}
}
