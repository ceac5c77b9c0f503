package access

import (
	"context"
	"sync"

	"github.com/c360/datamall/errors"
)

// StaticResolver resolves credentials from a fixed in-process table, the way
// standalone deployments declare their tokens in configuration. It is safe
// for concurrent use.
type StaticResolver struct {
	mu       sync.RWMutex
	accesses map[string]*Access
}

// NewStaticResolver returns an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{accesses: map[string]*Access{}}
}

// Add registers a credential. A repeated credential replaces the previous
// access.
func (r *StaticResolver) Add(credential string, a *Access) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accesses[credential] = a
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(ctx context.Context, uid, credential string) (*Access, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accesses[credential]
	if !ok {
		return nil, errors.NewUnknownResource("access", credential)
	}
	return a, nil
}
