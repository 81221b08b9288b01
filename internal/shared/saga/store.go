package saga

import "context"

// UpdateFunc mutates one instance under the store's exclusive claim. It
// receives the zero Instance and found=false when no row exists yet, and
// returns the instance to persist; returning save=false skips the write.
type UpdateFunc func(instance Instance, found bool) (next Instance, save bool, err error)

// InstanceStore persists saga instances keyed by (saga name, correlation id).
//
// UpdateInstance runs the whole read-modify-write under mutual exclusion for
// the key, so two workers handling different events for the same correlation
// cannot overwrite each other's flags or state.
type InstanceStore interface {
	GetInstance(ctx context.Context, sagaName string, correlationID string) (Instance, bool, error)
	UpdateInstance(ctx context.Context, sagaName string, correlationID string, fn UpdateFunc) error
}
