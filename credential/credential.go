// Package credential defines the entitlement-token capability. The
// engine issues one credential per granted subscription, parks it in
// custody while the subscription is suspended, and burns it when the
// subscription is removed. What a credential physically is (an NFT,
// a signed blob, a row) belongs to the injected implementation.
package credential

import (
	"context"
	"errors"

	"github.com/xraph/tollgate/id"
)

// ErrUnknownCredential is returned for operations on a credential the
// collection has never issued or has already burned.
var ErrUnknownCredential = errors.New("credential: unknown credential")

// Collection issues and moves credentials for one or more contractors.
type Collection interface {
	// Issue mints a new credential owned by the given holder.
	Issue(ctx context.Context, holder string) (id.CredentialID, error)
	// Transfer moves a credential between holders. The engine uses
	// this to take custody on revocation and to return the credential
	// on reactivation.
	Transfer(ctx context.Context, credID id.CredentialID, from, to string) error
	// Burn destroys a credential permanently.
	Burn(ctx context.Context, credID id.CredentialID) error
	// OwnerOf returns the current holder of a credential.
	OwnerOf(ctx context.Context, credID id.CredentialID) (string, error)
}

// Provider resolves the collection a contractor's credentials live
// in. Deployments with one collection for everything wrap it with
// Shared; deployments that provision a collection per contractor
// implement Provider directly.
type Provider interface {
	CollectionFor(ctx context.Context, contractor string) (Collection, error)
}

// Shared returns a Provider that hands every contractor the same
// collection.
func Shared(c Collection) Provider {
	return sharedProvider{c: c}
}

type sharedProvider struct {
	c Collection
}

func (p sharedProvider) CollectionFor(_ context.Context, _ string) (Collection, error) {
	return p.c, nil
}
