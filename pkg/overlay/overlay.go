// Package overlay keeps the local, not yet confirmed changes to the edge set:
// optimistic edges created before the backend answered, and ids of edges the
// user deleted whose removal the backend has not confirmed yet.
package overlay

import (
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// DefaultTTL is how long an optimistic edge may stay unconfirmed.
const DefaultTTL = 30 * time.Second

type entry struct {
	edge     *graph.Edge
	source   string
	target   string
	created  time.Time
	attached bool
}

// Store holds optimistic edges and hidden edge ids. It is owned by the engine
// and not safe for concurrent use.
type Store struct {
	entries []*entry
	hidden  map[string]struct{}
	ttl     time.Duration
}

// New creates a Store. A ttl <= 0 disables expiry.
func New(ttl time.Duration) *Store {
	return &Store{
		hidden: make(map[string]struct{}),
		ttl:    ttl,
	}
}

// Add records e as optimistic. Its endpoints must be working-set nodes.
func (s *Store) Add(e *graph.Edge, now time.Time) {
	e.Optimistic = true
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	s.entries = append(s.entries, &entry{
		edge:     e,
		source:   e.Source.ID,
		target:   e.Target.ID,
		created:  now,
		attached: true,
	})
}

// RemoveMatching drops optimistic edges with the given endpoints and relationship.
func (s *Store) RemoveMatching(source, target string, rel graph.RelationshipType) int {
	return s.removeWhere(func(en *entry) bool {
		return en.source == source && en.target == target && en.edge.Relationship == rel
	})
}

// Rollback drops the optimistic edge with id, reporting whether it existed.
func (s *Store) Rollback(id string) bool {
	return s.removeWhere(func(en *entry) bool { return en.edge.ID == id }) > 0
}

// Reconcile drops optimistic edges that now exist in confirmed.
func (s *Store) Reconcile(confirmed []*graph.Edge) int {
	keys := keySet(confirmed)
	return s.removeWhere(func(en *entry) bool {
		_, ok := keys[en.key()]
		return ok
	})
}

// Rebind points optimistic edges at the current working-set nodes. Edges with
// a missing endpoint stay in the store but are left out of Merge until the
// endpoint returns.
func (s *Store) Rebind(lookup func(id string) (*graph.Node, bool)) {
	for _, en := range s.entries {
		src, okS := lookup(en.source)
		dst, okT := lookup(en.target)
		en.attached = okS && okT
		if en.attached {
			en.edge.Source, en.edge.Target = src, dst
		}
	}
}

// Hide excludes ids from Merge until ConfirmDeletions sees them gone.
func (s *Store) Hide(ids ...string) {
	for _, id := range ids {
		s.hidden[id] = struct{}{}
	}
}

// Hidden reports whether id is locally deleted.
func (s *Store) Hidden(id string) bool {
	_, ok := s.hidden[id]
	return ok
}

// Unhide releases ids, e.g. after a delete request failed.
func (s *Store) Unhide(ids ...string) {
	for _, id := range ids {
		delete(s.hidden, id)
	}
}

// ConfirmDeletions releases hidden ids that no longer appear in confirmed.
func (s *Store) ConfirmDeletions(confirmed []*graph.Edge) int {
	present := make(map[string]struct{}, len(confirmed))
	for _, e := range confirmed {
		present[e.ID] = struct{}{}
	}
	released := 0
	for id := range s.hidden {
		if _, ok := present[id]; !ok {
			delete(s.hidden, id)
			released++
		}
	}
	return released
}

// Clear drops every optimistic edge and hidden id.
func (s *Store) Clear() {
	s.entries = nil
	clear(s.hidden)
}

// Merge returns the draw and hit-test list: confirmed edges that are not hidden,
// then attached optimistic edges whose (source, target, relationship) is not
// already present.
func (s *Store) Merge(confirmed []*graph.Edge) []*graph.Edge {
	out := make([]*graph.Edge, 0, len(confirmed)+len(s.entries))
	seen := keySet(confirmed)
	for _, e := range confirmed {
		if !s.Hidden(e.ID) {
			out = append(out, e)
		}
	}
	for _, en := range s.entries {
		if !en.attached || s.Hidden(en.edge.ID) {
			continue
		}
		k := en.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, en.edge)
	}
	return out
}

// Expire drops optimistic edges older than the TTL and returns them.
func (s *Store) Expire(now time.Time) []*graph.Edge {
	if s.ttl <= 0 {
		return nil
	}
	var expired []*graph.Edge
	s.removeWhere(func(en *entry) bool {
		if now.Sub(en.created) >= s.ttl {
			expired = append(expired, en.edge)
			return true
		}
		return false
	})
	return expired
}

// Len returns the number of optimistic edges.
func (s *Store) Len() int { return len(s.entries) }

// HiddenLen returns the number of hidden ids.
func (s *Store) HiddenLen() int { return len(s.hidden) }

// Edge returns the optimistic edge with id.
func (s *Store) Edge(id string) (*graph.Edge, bool) {
	for _, en := range s.entries {
		if en.edge.ID == id {
			return en.edge, true
		}
	}
	return nil, false
}

func (s *Store) removeWhere(drop func(*entry) bool) int {
	kept := s.entries[:0]
	removed := 0
	for _, en := range s.entries {
		if drop(en) {
			removed++
			continue
		}
		kept = append(kept, en)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return removed
}

func (en *entry) key() graph.EdgeKey {
	return graph.EdgeKey{Source: en.source, Target: en.target, Relationship: en.edge.Relationship}
}

func keySet(edges []*graph.Edge) map[graph.EdgeKey]struct{} {
	keys := make(map[graph.EdgeKey]struct{}, len(edges))
	for _, e := range edges {
		keys[e.Key()] = struct{}{}
	}
	return keys
}

// Duplicates returns the ids of edges in all sharing e's endpoints and relationship, e included.
func Duplicates(all []*graph.Edge, e *graph.Edge) []string {
	k := e.Key()
	var ids []string
	for _, other := range all {
		if other.Key() == k {
			ids = append(ids, other.ID)
		}
	}
	return ids
}
