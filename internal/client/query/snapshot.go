package query

import "time"

// Snapshot records the prior value of every entry an optimistic update
// touches, so the update can be undone exactly. Updaters must return new
// values and leave the old ones untouched.
type Snapshot struct {
	c     *Client
	saved map[string]saved
	order []string
}

type saved struct {
	key         Key
	existed     bool
	hasData     bool
	data        any
	status      Status
	err         error
	updatedAt   time.Time
	invalidated bool
}

// Snapshot starts an empty snapshot bound to c.
func (c *Client) Snapshot() *Snapshot {
	return &Snapshot{c: c, saved: make(map[string]saved)}
}

// Keys returns the captured keys in capture order.
func (s *Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(s.order))
	for _, h := range s.order {
		keys = append(keys, s.saved[h].key)
	}
	return keys
}

// captureLocked records e the first time it is touched.
func (s *Snapshot) captureLocked(hash string, key Key, e *entry) {
	if _, ok := s.saved[hash]; ok {
		return
	}
	sv := saved{key: key}
	if e != nil {
		sv = saved{
			key:         e.key,
			existed:     true,
			hasData:     e.hasData,
			data:        e.data,
			status:      e.status,
			err:         e.err,
			updatedAt:   e.updatedAt,
			invalidated: e.invalidated,
		}
	}
	s.saved[hash] = sv
	s.order = append(s.order, hash)
}

// apply runs update on every entry selected by match that holds data.
// update reports false to leave an entry alone.
func (s *Snapshot) apply(match func(e *entry) bool, update func(old any) (any, bool)) int {
	c := s.c
	c.mu.Lock()
	var ns []notice
	n := 0
	for hash, e := range c.entries {
		if !e.hasData || !match(e) {
			continue
		}
		v, ok := update(e.data)
		if !ok {
			continue
		}
		s.captureLocked(hash, e.key, e)
		e.data = v
		e.status, e.err = StatusSuccess, nil
		e.updatedAt = c.now()
		ns = append(ns, e.notice())
		n++
	}
	c.mu.Unlock()
	fire(ns)
	return n
}

// Patch replaces the value under key with fn(old) when the entry holds a T.
// Entries without data are left empty. fn runs under the cache lock and must
// not call back into the Client.
func Patch[T any](s *Snapshot, key Key, fn func(T) T) bool {
	hash := key.Hash()
	return s.apply(
		func(e *entry) bool { return e.key.Hash() == hash },
		typed(fn),
	) > 0
}

// PatchMatching applies fn to every entry under prefix that holds a T,
// whatever identifiers follow the prefix. It returns the number of entries
// patched.
func PatchMatching[T any](s *Snapshot, prefix Key, fn func(T) T) int {
	return s.apply(
		func(e *entry) bool { return e.key.HasPrefix(prefix) },
		typed(fn),
	)
}

func typed[T any](fn func(T) T) func(any) (any, bool) {
	return func(old any) (any, bool) {
		t, ok := old.(T)
		if !ok {
			return nil, false
		}
		return fn(t), true
	}
}

// Set writes v under key, creating the entry if needed.
func (s *Snapshot) Set(key Key, v any) {
	c := s.c
	hash := key.Hash()
	c.mu.Lock()
	s.captureLocked(hash, key, c.entries[hash])
	e := c.entryLocked(key, hash)
	e.data, e.hasData = v, true
	e.status, e.err = StatusSuccess, nil
	e.updatedAt = c.now()
	n := e.notice()
	c.mu.Unlock()
	fire([]notice{n})
}

// Drop clears the data under key. Observers stay attached.
func (s *Snapshot) Drop(key Key) {
	c := s.c
	hash := key.Hash()
	c.mu.Lock()
	e, ok := c.entries[hash]
	if !ok || !e.hasData {
		c.mu.Unlock()
		return
	}
	s.captureLocked(hash, key, e)
	e.data, e.hasData = nil, false
	e.status, e.err = StatusIdle, nil
	n := e.notice()
	c.mu.Unlock()
	fire([]notice{n})
}

// Restore puts every captured entry back to its recorded value. Entries
// that did not exist before are emptied again.
func (s *Snapshot) Restore() {
	c := s.c
	c.mu.Lock()
	var ns []notice
	for _, hash := range s.order {
		sv := s.saved[hash]
		e, ok := c.entries[hash]
		if !sv.existed {
			if !ok {
				continue
			}
			if len(e.observers) == 0 && !e.fetching {
				delete(c.entries, hash)
				continue
			}
		}
		if !ok {
			e = c.entryLocked(sv.key, hash)
		}
		e.data, e.hasData = sv.data, sv.hasData
		e.status, e.err = sv.status, sv.err
		e.updatedAt = sv.updatedAt
		e.invalidated = sv.invalidated
		ns = append(ns, e.notice())
	}
	c.mu.Unlock()
	fire(ns)
}

// Update replaces the value under key with fn(old) outside of any
// optimistic scope. It is how confirmed server values are merged into
// cached lists.
func Update[T any](c *Client, key Key, fn func(T) T) bool {
	return Patch(c.Snapshot(), key, fn)
}

// UpdateMatching is Update for every entry under prefix.
func UpdateMatching[T any](c *Client, prefix Key, fn func(T) T) int {
	return PatchMatching(c.Snapshot(), prefix, fn)
}
