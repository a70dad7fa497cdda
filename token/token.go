// Package token defines the payment capability the engine settles
// value through. The engine never touches balances directly; it asks
// an injected Transferor to move funds and trusts the answer.
package token

import (
	"context"
	"errors"

	"github.com/xraph/tollgate/types"
)

// ErrInsufficientFunds is returned by a Transferor when the payer's
// balance or prior authorization cannot cover the requested amount.
// Implementations must return an error matching this sentinel for
// that case and only that case; the engine treats every other failure
// as a fault, not a declined payment.
var ErrInsufficientFunds = errors.New("token: insufficient balance or allowance")

// Transferor moves value between external accounts and the engine's
// custody. Implementations bind the custody account at construction.
type Transferor interface {
	// TransferFrom pulls amount from the payer into custody using the
	// payer's prior authorization.
	TransferFrom(ctx context.Context, payer string, amount types.Amount) error
	// Transfer pays amount out of custody.
	Transfer(ctx context.Context, payee string, amount types.Amount) error
}
