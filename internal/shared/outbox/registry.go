package outbox

// Registry maps an event type discriminator to the ordered list of handlers
// registered for it. Modules register their handlers at bootstrap, before any
// job starts; the registry is read-only afterwards so dispatch needs no
// locking.
type Registry struct {
	handlers map[string][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

func (r *Registry) Register(eventType string, handlers ...Handler) {
	r.handlers[eventType] = append(r.handlers[eventType], handlers...)
}

func (r *Registry) HandlersFor(eventType string) []Handler {
	return r.handlers[eventType]
}

// EventTypes returns every registered discriminator.
func (r *Registry) EventTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, eventType)
	}
	return types
}
