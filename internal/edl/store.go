package edl

import "sync/atomic"

// Store is the single source of truth for the active EDL. It is
// implemented as a copy-on-write pointer swap: replace builds an entirely
// new Snapshot and atomically publishes it, so get() never blocks and never
// observes partial state.
type Store struct {
	current atomic.Pointer[Snapshot]
	opener  MediaOpener
}

func NewStore(opener MediaOpener) *Store {
	return &Store{opener: opener}
}

// Replace validates e and, on success, atomically publishes it as the new
// snapshot, fully discarding any prior one. On validation failure the
// store is left untouched.
func (s *Store) Replace(e Edl) (Snapshot, error) {
	v, err := Validate(e, s.opener)
	if err != nil {
		return Snapshot{}, err
	}

	revision, err := ComputeRevision(v.edl)
	if err != nil {
		return Snapshot{}, err
	}
	v.edl.Revision = revision

	snap := Snapshot{
		Edl:        v.edl,
		Revision:   revision,
		TrackCount: v.edl.trackCount(),
		ClipCount:  v.edl.clipCount(),
	}
	s.current.Store(&snap)
	return snap.Clone(), nil
}

// Get returns an independently owned deep copy of the current snapshot, or
// false if no EDL has ever been successfully applied.
func (s *Store) Get() (Snapshot, bool) {
	p := s.current.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return p.Clone(), true
}
