package tollgate

import "github.com/xraph/tollgate/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount helpers
var (
	Tokens = types.Tokens
	Sum    = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
