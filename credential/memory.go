package credential

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/tollgate/id"
)

// MemoryCollection is an in-process credential collection for tests
// and non-chain deployments.
type MemoryCollection struct {
	mu     sync.RWMutex
	owners map[id.CredentialID]string
}

var _ Collection = (*MemoryCollection)(nil)

// NewMemoryCollection creates an empty collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{
		owners: make(map[id.CredentialID]string),
	}
}

// Issue mints a new credential owned by holder.
func (c *MemoryCollection) Issue(_ context.Context, holder string) (id.CredentialID, error) {
	credID := id.NewCredentialID()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[credID] = holder

	return credID, nil
}

// Transfer moves a credential from one holder to another. Fails if
// the credential is unknown or not currently held by from.
func (c *MemoryCollection) Transfer(_ context.Context, credID id.CredentialID, from, to string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[credID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCredential, credID)
	}
	if owner != from {
		return fmt.Errorf("credential: %s held by %s, not %s", credID, owner, from)
	}

	c.owners[credID] = to

	return nil
}

// Burn destroys a credential.
func (c *MemoryCollection) Burn(_ context.Context, credID id.CredentialID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.owners[credID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCredential, credID)
	}

	delete(c.owners, credID)

	return nil
}

// OwnerOf returns the current holder of a credential.
func (c *MemoryCollection) OwnerOf(_ context.Context, credID id.CredentialID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owner, ok := c.owners[credID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCredential, credID)
	}

	return owner, nil
}

// Size returns how many credentials are currently live.
func (c *MemoryCollection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.owners)
}
