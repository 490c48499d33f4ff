package session

// Store is the persistence abstraction for live sessions.
// The Manager serialises access; implementations need no locking.
type Store interface {
	Get(id ID) (*Session, bool)
	Set(s *Session)
	Delete(id ID) bool
	List() []*Session
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	sessions map[ID]*Session
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[ID]*Session)}
}

// Get implements Store.Get.
func (s *InMemoryStore) Get(id ID) (*Session, bool) {
	sess, ok := s.sessions[id]
	return sess, ok
}

// Set implements Store.Set.
func (s *InMemoryStore) Set(sess *Session) {
	s.sessions[sess.ID] = sess
}

// Delete implements Store.Delete.
func (s *InMemoryStore) Delete(id ID) bool {
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List implements Store.List.
func (s *InMemoryStore) List() []*Session {
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}
