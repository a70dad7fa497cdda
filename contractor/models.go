// Package contractor defines the service-provider registry: the
// parties customers subscribe to, their per-cycle terms, and the
// revenue balances accrued for them.
package contractor

import (
	"github.com/xraph/tollgate/types"
)

// Contractor is a registered service provider. Address is the
// caller identity the contractor withdraws with; it is also the
// registry key, so it is unique across the engine.
type Contractor struct {
	types.Entity
	Address  string            `json:"address"`
	PerCycle types.Amount      `json:"per_cycle"`
	Balance  types.Amount      `json:"balance"`
	Position int64             `json:"-"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Config carries the terms a contractor is registered with.
type Config struct {
	PerCycle types.Amount      `json:"per_cycle"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// New builds a Contractor from an address and its registration terms.
func New(address string, cfg Config) *Contractor {
	return &Contractor{
		Entity:   types.NewEntity(),
		Address:  address,
		PerCycle: cfg.PerCycle,
		Metadata: cfg.Metadata,
	}
}
