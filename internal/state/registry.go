package state

// EntityRegistry tracks the entities seen in the current run in first-seen order.
type EntityRegistry struct {
	order []string
	index map[string]int
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{index: make(map[string]int)}
}

// Register appends key if absent. It reports whether key was new.
func (r *EntityRegistry) Register(key string) bool {
	if _, ok := r.index[key]; ok {
		return false
	}
	r.index[key] = len(r.order)
	r.order = append(r.order, key)
	return true
}

// Contains reports whether key has been registered in this run.
func (r *EntityRegistry) Contains(key string) bool {
	_, ok := r.index[key]
	return ok
}

// List returns a copy of the discovery order.
func (r *EntityRegistry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *EntityRegistry) Len() int { return len(r.order) }

func (r *EntityRegistry) Reset() {
	r.order = nil
	r.index = make(map[string]int)
}
