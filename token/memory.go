package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/tollgate/types"
)

// MemoryLedger is an in-process token ledger with balances and
// spending allowances. It backs tests and non-chain deployments.
type MemoryLedger struct {
	mu         sync.RWMutex
	balances   map[string]types.Amount
	allowances map[string]map[string]types.Amount // owner -> spender -> amount
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[string]types.Amount),
		allowances: make(map[string]map[string]types.Amount),
	}
}

// Mint credits amount to an account.
func (l *MemoryLedger) Mint(account string, amount types.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// Approve authorizes spender to pull up to amount from owner.
// The allowance is set, not added.
func (l *MemoryLedger) Approve(owner, spender string, amount types.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]types.Amount)
	}
	l.allowances[owner][spender] = amount
}

// BalanceOf returns the current balance of an account.
func (l *MemoryLedger) BalanceOf(account string) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[account]
}

// Allowance returns how much spender may still pull from owner.
func (l *MemoryLedger) Allowance(owner, spender string) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.allowances[owner][spender]
}

// Account returns a Transferor view acting as the given custody
// account. TransferFrom consumes allowances granted to it; Transfer
// spends its own balance.
func (l *MemoryLedger) Account(custody string) Transferor {
	return &accountView{ledger: l, custody: custody}
}

type accountView struct {
	ledger  *MemoryLedger
	custody string
}

var _ Transferor = (*accountView)(nil)

func (v *accountView) TransferFrom(_ context.Context, payer string, amount types.Amount) error {
	if amount.IsNegative() {
		return fmt.Errorf("token: negative transfer of %s from %s", amount, payer)
	}

	l := v.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowances[payer][v.custody]
	if l.balances[payer] < amount || allowed < amount {
		return fmt.Errorf("%w: payer %s", ErrInsufficientFunds, payer)
	}

	l.balances[payer] -= amount
	l.balances[v.custody] += amount
	l.allowances[payer][v.custody] = allowed - amount

	return nil
}

func (v *accountView) Transfer(_ context.Context, payee string, amount types.Amount) error {
	if amount.IsNegative() {
		return fmt.Errorf("token: negative transfer of %s to %s", amount, payee)
	}

	l := v.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[v.custody] < amount {
		return fmt.Errorf("%w: custody %s", ErrInsufficientFunds, v.custody)
	}

	l.balances[v.custody] -= amount
	l.balances[payee] += amount

	return nil
}
