package inspector

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the state shared by every request of one inspector run. It is
// passed to NewServer explicitly; nothing lives at package level.
type Session struct {
	ID        string
	CreatedAt time.Time
	Objects   *ObjectRegistry
}

// NewSession creates a session with a fresh id and an empty registry.
func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Objects:   NewObjectRegistry(),
	}
}

// Object is a named value exposed to inspector clients.
type Object struct {
	Name        string
	Kind        string
	Description string
	Value       any
}

// ObjectRegistry holds the objects of a session. Safe for concurrent use.
type ObjectRegistry struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewObjectRegistry creates an empty registry.
func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{objects: make(map[string]Object)}
}

// Register adds or replaces an object.
func (r *ObjectRegistry) Register(obj Object) error {
	if obj.Name == "" {
		return fmt.Errorf("object name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[obj.Name] = obj
	return nil
}

// Get returns the named object.
func (r *ObjectRegistry) Get(name string) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[name]
	return obj, ok
}

// List returns all objects sorted by name.
func (r *ObjectRegistry) List() []Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Object, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered objects.
func (r *ObjectRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// render formats an object's value for display, preferring indented JSON.
func render(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
