// Package client implements the consumer-side reconciliation protocol: a
// per-session snapshot store that applies domain events idempotently and
// manages cache-busting for mutable media references.
//
// Application of events is order-tolerant. Every recipe event carries the
// recipe's logical version; the store discards events that are not newer
// than its held copy, so applying the same event twice, or an older event
// after a newer one, never regresses state. Evictions are remembered as
// tombstones so a late, older update cannot resurrect a deleted recipe.
//
// Reconciliation for one session runs on a single logical thread; the store
// still takes a mutex so a resync timer can run beside the event loop.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tbourn/go-recipe-backend/internal/events"
)

// Fetcher re-fetches the full recipe state visible to this session. It is
// the coarse "resync all" fallback used after a disconnect gap; the server
// does not replay missed events.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]events.RecipeSnapshot, error)
}

// entry pairs a held snapshot with the session's media generation counter.
// The generation exists purely to invalidate cached image bytes; it never
// participates in correctness ordering.
type entry struct {
	snap       events.RecipeSnapshot
	generation int64
}

// Store holds one session's local view of the catalog.
type Store struct {
	mu         sync.Mutex
	recipes    map[string]entry
	tombstones map[string]int64 // recipe id -> version at deletion
	fetcher    Fetcher
	window     time.Duration

	staleSince time.Time // zero when state is trusted
	lastEvent  time.Time

	now func() time.Time // test seam
}

// NewStore returns an empty session store. window bounds how long a
// reconnected session waits for a first event before a forced refetch.
func NewStore(f Fetcher, window time.Duration) *Store {
	return &Store{
		recipes:    make(map[string]entry),
		tombstones: make(map[string]int64),
		fetcher:    f,
		window:     window,
		now:        time.Now,
	}
}

// Apply reconciles one incoming event into the local snapshot. Unknown or
// irrelevant event kinds are ignored for forward compatibility.
func (s *Store) Apply(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEvent = s.now()

	switch ev.Kind {
	case events.KindCreated, events.KindUpdated, events.KindStatusChanged,
		events.KindSignatureToggled, events.KindPhotoUpdated:
		snap, ok := ev.Payload.(events.RecipeSnapshot)
		if !ok {
			return
		}
		s.upsert(snap, ev.Kind == events.KindPhotoUpdated)

	case events.KindRated:
		sum, ok := ev.Payload.(events.RatingSummary)
		if !ok {
			return
		}
		held, ok := s.recipes[sum.RecipeID]
		if !ok || sum.Version <= held.snap.Version {
			return
		}
		// Patch only the aggregate; everything else stays as held.
		held.snap.Average = sum.Average
		held.snap.Count = sum.Count
		held.snap.Version = sum.Version
		s.recipes[sum.RecipeID] = held

	case events.KindDeleted:
		id := ev.RecipeID
		if id == "" {
			if snap, ok := ev.Payload.(events.RecipeSnapshot); ok {
				id = snap.ID
			}
		}
		if id == "" {
			return
		}
		if held, ok := s.recipes[id]; ok && held.snap.Version > ev.Version {
			// A newer copy than the deletion is held; the deletion is stale.
			return
		}
		delete(s.recipes, id)
		if ev.Version > s.tombstones[id] {
			s.tombstones[id] = ev.Version
		}
	}
}

// upsert replaces the held snapshot wholesale when the incoming one is newer.
// photoChanged forces the media generation strictly past its previous value
// so no rendering can silently serve stale cached bytes.
func (s *Store) upsert(snap events.RecipeSnapshot, photoChanged bool) {
	if ts, ok := s.tombstones[snap.ID]; ok && snap.Version <= ts {
		return
	}
	held, exists := s.recipes[snap.ID]
	if exists && snap.Version <= held.snap.Version {
		return
	}

	gen := snap.ImageVersion
	if exists {
		if held.generation > gen {
			gen = held.generation
		}
		if photoChanged && gen <= held.generation {
			gen = held.generation + 1
		}
	}
	s.recipes[snap.ID] = entry{snap: snap, generation: gen}
}

// Get returns the held snapshot and its media generation.
func (s *Store) Get(id string) (events.RecipeSnapshot, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.recipes[id]
	return e.snap, e.generation, ok
}

// Len returns the number of held snapshots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recipes)
}

// ImageURL returns the rendering identifier for a recipe's image with the
// session generation embedded, so any photo change produces a new URL and
// cached bytes for older generations are never shown silently. It returns
// "" when the recipe is unknown or has no image.
func (s *Store) ImageURL(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.recipes[id]
	if !ok || e.snap.ImageRef == "" {
		return ""
	}
	return fmt.Sprintf("/media/%s?g=%d", e.snap.ImageRef, e.generation)
}

// MarkStale records that the session reconnected after a gap and must not
// trust accumulated local state until it resynchronizes. The flag is
// cleared only by Resync: events arriving afterward suppress NeedsResync
// but do not clear Stale, so drivers must call Resync whenever Stale
// reports true, treating NeedsResync as the quiet-stream trigger only.
func (s *Store) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleSince = s.now()
}

// Stale reports whether a resynchronization is pending.
func (s *Store) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.staleSince.IsZero()
}

// NeedsResync reports whether the staleness window has elapsed since the
// reconnect without any event arriving, meaning the session must proactively
// refetch rather than keep trusting partial events. It goes quiet once any
// event lands after MarkStale, even though the state is still stale; it is
// a trigger for silent streams, not the resync condition itself. Drivers
// polling for when to call Resync must check Stale, which stays true until
// Resync completes.
func (s *Store) NeedsResync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleSince.IsZero() {
		return false
	}
	if s.lastEvent.After(s.staleSince) {
		return false
	}
	return s.now().Sub(s.staleSince) >= s.window
}

// Resync replaces the whole local state with a fresh fetch. Held media
// generations never move backward across a resync, so a photo change that
// happened during the gap still invalidates cached bytes.
func (s *Store) Resync(ctx context.Context) error {
	snaps, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := make(map[string]entry, len(snaps))
	for _, snap := range snaps {
		gen := snap.ImageVersion
		if held, ok := s.recipes[snap.ID]; ok && held.generation > gen {
			gen = held.generation
		}
		fresh[snap.ID] = entry{snap: snap, generation: gen}
	}
	s.recipes = fresh
	s.tombstones = make(map[string]int64)
	s.staleSince = time.Time{}
	return nil
}
