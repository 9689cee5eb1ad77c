package remote

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

type role struct {
	ID   int
	Name string
}

// fakeBackend is an in-memory stand-in for the REST endpoints.
type fakeBackend struct {
	mu        sync.Mutex
	rows      []role
	failNext  error
	listCalls int
}

func (b *fakeBackend) source() Source[role] {
	return Source[role]{
		Name: "roles",
		List: func(ctx context.Context) ([]role, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.listCalls++
			out := make([]role, len(b.rows))
			copy(out, b.rows)
			return out, nil
		},
		Create: func(ctx context.Context, r role) (role, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if err := b.takeFailure(); err != nil {
				return r, err
			}
			r.ID = len(b.rows) + 1
			b.rows = append(b.rows, r)
			return r, nil
		},
		Update: func(ctx context.Context, r role) (role, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if err := b.takeFailure(); err != nil {
				return r, err
			}
			for i := range b.rows {
				if b.rows[i].ID == r.ID {
					b.rows[i] = r
				}
			}
			return r, nil
		},
		Delete: func(ctx context.Context, key string) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			if err := b.takeFailure(); err != nil {
				return err
			}
			kept := b.rows[:0]
			for _, r := range b.rows {
				if strconv.Itoa(r.ID) != key {
					kept = append(kept, r)
				}
			}
			b.rows = kept
			return nil
		},
		Key: func(r role) string { return strconv.Itoa(r.ID) },
	}
}

func (b *fakeBackend) takeFailure() error {
	err := b.failNext
	b.failNext = nil
	return err
}

func TestReloadReplacesItems(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "Administrator"}, {2, "Student"}}}
	col := New(b.source())
	defer col.Close()

	if col.Snapshot().Loaded {
		t.Fatal("new collection should not be loaded")
	}
	if err := col.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	snap := col.Snapshot()
	if !snap.Loaded || len(snap.Items) != 2 || snap.Loading {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestReloadFailureEmptiesItems(t *testing.T) {
	calls := 0
	col := New(Source[role]{
		Name: "roles",
		List: func(ctx context.Context) ([]role, error) {
			calls++
			if calls == 1 {
				return []role{{1, "Administrator"}}, nil
			}
			return nil, errors.New("connection refused")
		},
		Key: func(r role) string { return strconv.Itoa(r.ID) },
	})
	defer col.Close()

	col.Reload(context.Background())
	if err := col.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}

	snap := col.Snapshot()
	if len(snap.Items) != 0 {
		t.Errorf("items should be emptied on failure, got %v", snap.Items)
	}
	if snap.Error != "connection refused" {
		t.Errorf("unexpected error %q", snap.Error)
	}
}

func TestCreateReconcilesWithBackend(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "Administrator"}}}
	col := New(b.source())
	defer col.Close()
	col.Reload(context.Background())

	created, err := col.Create(context.Background(), role{Name: "Teacher"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 2 {
		t.Errorf("expected backend id 2, got %d", created.ID)
	}

	snap := col.Snapshot()
	if len(snap.Items) != 2 || snap.Items[1].ID != 2 {
		t.Errorf("expected reconciled items, got %+v", snap.Items)
	}
	if snap.Message != DefaultMessages.Created {
		t.Errorf("expected created message, got %q", snap.Message)
	}
	if b.listCalls != 2 {
		t.Errorf("expected a reload after create, got %d list calls", b.listCalls)
	}
}

func TestFailedMutationRollsBack(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "Administrator"}, {2, "Student"}}}
	col := New(b.source())
	defer col.Close()
	col.Reload(context.Background())

	b.failNext = errors.New("server exploded")
	if err := col.Remove(context.Background(), "2"); err == nil {
		t.Fatal("expected remove error")
	}

	snap := col.Snapshot()
	if len(snap.Items) != 2 {
		t.Errorf("remove should be rolled back, got %+v", snap.Items)
	}
	if snap.Message != "Error: server exploded" {
		t.Errorf("unexpected message %q", snap.Message)
	}

	b.failNext = errors.New("nope")
	if _, err := col.Update(context.Background(), role{2, "Alumno"}); err == nil {
		t.Fatal("expected update error")
	}
	if got, _ := col.Find("2"); got.Name != "Student" {
		t.Errorf("update should be rolled back, got %+v", got)
	}
}

func TestMutateCustomCall(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "Administrator"}}}
	col := New(b.source())
	defer col.Close()
	col.Reload(context.Background())

	err := col.Mutate(context.Background(), Append(role{99, "pending"}), func(ctx context.Context) error {
		if _, ok := col.Find("99"); !ok {
			t.Error("patch should be visible while the call runs")
		}
		return errors.New("rejected")
	}, "ok")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := col.Find("99"); ok {
		t.Error("failed custom mutation should be rolled back")
	}
	if got := col.Snapshot().Message; got != "Error: rejected" {
		t.Errorf("expected failure message, got %q", got)
	}
}

func TestFailedMutationLeavesErrorUnset(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "Administrator"}, {2, "Student"}}}
	col := New(b.source(), WithMessageTTL(20*time.Millisecond))
	defer col.Close()
	col.Reload(context.Background())

	b.failNext = errors.New("boom")
	if err := col.Remove(context.Background(), "2"); err == nil {
		t.Fatal("expected remove error")
	}
	if snap := col.Snapshot(); snap.Error != "" || snap.Message != "Error: boom" {
		t.Errorf("failed mutation should only set the message, got error=%q message=%q", snap.Error, snap.Message)
	}

	time.Sleep(80 * time.Millisecond)
	if err := col.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	snap := col.Snapshot()
	if snap.Error != "" || snap.Message != "" {
		t.Errorf("expected clean state after the TTL, got error=%q message=%q", snap.Error, snap.Message)
	}
	if len(snap.Items) != 2 {
		t.Errorf("expected both items, got %+v", snap.Items)
	}
}

func TestFailedMutationKeepsReloadAppliedDuringCall(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "a"}}}
	src := b.source()
	entered := make(chan struct{})
	release := make(chan struct{})
	src.Delete = func(ctx context.Context, key string) error {
		close(entered)
		<-release
		return errors.New("boom")
	}
	col := New(src)
	defer col.Close()
	col.Reload(context.Background())

	done := make(chan error, 1)
	go func() { done <- col.Remove(context.Background(), "1") }()
	<-entered

	b.mu.Lock()
	b.rows = append(b.rows, role{2, "b"})
	b.mu.Unlock()
	if err := col.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	close(release)
	if err := <-done; err == nil {
		t.Fatal("expected remove error")
	}

	snap := col.Snapshot()
	if len(snap.Items) != 2 {
		t.Fatalf("reload applied during the call was overwritten: %+v", snap.Items)
	}
	if _, ok := col.Find("2"); !ok {
		t.Error("item 2 from the newer reload is missing")
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	b := &fakeBackend{rows: []role{{1, "Administrator"}}}
	col := New(b.source())
	defer col.Close()
	col.Reload(context.Background())

	if _, err := col.Update(context.Background(), role{9, "Ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMissingOperations(t *testing.T) {
	col := New(Source[role]{
		List: func(ctx context.Context) ([]role, error) { return nil, nil },
		Key:  func(r role) string { return strconv.Itoa(r.ID) },
	})
	defer col.Close()

	if _, err := col.Create(context.Background(), role{}); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if err := col.Remove(context.Background(), "1"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestStaleReloadIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	call := 0
	var mu sync.Mutex

	col := New(Source[role]{
		Name: "roles",
		List: func(ctx context.Context) ([]role, error) {
			mu.Lock()
			call++
			n := call
			mu.Unlock()
			started <- struct{}{}
			if n == 1 {
				<-release
				return []role{{1, "old"}}, nil
			}
			return []role{{1, "new"}}, nil
		},
		Key: func(r role) string { return strconv.Itoa(r.ID) },
	})
	defer col.Close()

	done := make(chan struct{})
	go func() {
		col.Reload(context.Background())
		close(done)
	}()
	<-started

	col.Reload(context.Background())
	close(release)
	<-done

	snap := col.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Name != "new" {
		t.Errorf("stale response overwrote newer data: %+v", snap.Items)
	}
	if snap.Loading {
		t.Error("loading should be false once all reloads finish")
	}
}

func TestMessageClearsAfterTTL(t *testing.T) {
	b := &fakeBackend{}
	col := New(b.source(), WithMessageTTL(30*time.Millisecond))
	defer col.Close()

	cleared := make(chan struct{}, 1)
	unsubscribe := col.OnChange(func(s Snapshot[role]) {
		if s.Message == "" {
			select {
			case cleared <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	col.SetMessage("Saved")
	if got := col.Snapshot().Message; got != "Saved" {
		t.Fatalf("expected message to be set, got %q", got)
	}

	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("message was not cleared")
	}
}

func TestNewerMessageKeepsItsOwnTTL(t *testing.T) {
	col := New((&fakeBackend{}).source(), WithMessageTTL(40*time.Millisecond))
	defer col.Close()

	col.SetMessage("first")
	time.Sleep(25 * time.Millisecond)
	col.SetMessage("second")
	time.Sleep(25 * time.Millisecond)

	if got := col.Snapshot().Message; got != "second" {
		t.Errorf("second message cleared by the first timer, got %q", got)
	}
}

func TestCacheIsolatesScopes(t *testing.T) {
	builds := 0
	cache := NewCache(func(resourceID int) *Collection[role] {
		builds++
		return New(Source[role]{
			List: func(ctx context.Context) ([]role, error) {
				return []role{{resourceID, "scoped"}}, nil
			},
			Key: func(r role) string { return strconv.Itoa(r.ID) },
		})
	})

	a := cache.Get(1)
	b := cache.Get(2)
	if a == b {
		t.Fatal("scopes must not share a collection")
	}
	if cache.Get(1) != a || builds != 2 {
		t.Errorf("expected cached collection, builds=%d", builds)
	}

	if err := cache.Invalidate(context.Background(), 2); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if snap := b.Snapshot(); len(snap.Items) != 1 || snap.Items[0].ID != 2 {
		t.Errorf("unexpected scope items: %+v", snap.Items)
	}
	if a.Snapshot().Loaded {
		t.Error("invalidating one scope must not load another")
	}

	cache.Drop(1)
	if _, ok := cache.Peek(1); ok {
		t.Error("dropped scope still cached")
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d", cache.Len())
	}
}
