package adapter

import "sync"

// ModelBinding pairs an opaque token with a registered driver model.
type ModelBinding struct {
	Token any
	Value any
}

// ModelStore keeps the models registered on one adapter.
// Tokens are compared with ==, so they must be comparable.
type ModelStore struct {
	mu     sync.RWMutex
	models []*ModelBinding
}

// NewModelStore creates an empty model store.
func NewModelStore() *ModelStore {
	return &ModelStore{}
}

// Add appends a binding. Duplicate tokens are kept.
func (s *ModelStore) Add(binding *ModelBinding) error {
	if binding == nil {
		return &InvalidArgumentError{Argument: "binding", Reason: "cannot add empty item"}
	}

	s.mu.Lock()
	s.models = append(s.models, binding)
	s.mu.Unlock()
	return nil
}

// Get returns the value of the first binding registered for token.
func (s *ModelStore) Get(token any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.models {
		if m.Token == token {
			return m.Value, true
		}
	}
	return nil, false
}

// Len returns the number of bindings.
func (s *ModelStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}
