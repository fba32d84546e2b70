// Copyright 2025 Agora Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/agoralabs-io/agora/types"
)

var (
	// ErrInvalidAmount is returned for zero or negative amounts
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance is returned when an account's free balance
	// cannot cover a transfer or burn
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger is the account-balance service the participation economy core is
// built on. Implementations must make each operation atomic and immediately
// consistent; no partial-transfer states are ever observable.
type Ledger interface {
	Mint(account string, amount types.Amount) error
	Burn(account string, amount types.Amount) error
	Transfer(from, to string, amount types.Amount) error
	Balance(account string) types.Amount
	CirculatingSupply() types.Amount
}

// MemLedger is a mutex-guarded in-memory Ledger. It is the single-process,
// single-ledger view the core assumes; settlement against an external chain
// or store is up to the host application.
type MemLedger struct {
	symbol   string
	decimals uint32
	supply   types.Amount
	balances map[string]types.Amount
	mu       sync.RWMutex
}

// NewMemLedger creates an empty in-memory ledger for a token with the given
// symbol and declared decimal places.
func NewMemLedger(symbol string, decimals uint32) *MemLedger {
	return &MemLedger{
		symbol:   symbol,
		decimals: decimals,
		balances: make(map[string]types.Amount),
	}
}

// Symbol returns the token symbol
func (l *MemLedger) Symbol() string {
	return l.symbol
}

// Decimals returns the declared number of decimal places
func (l *MemLedger) Decimals() uint32 {
	return l.decimals
}

// Mint creates new tokens in the given account and grows circulating supply
func (l *MemLedger) Mint(account string, amount types.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("mint %d: %w", amount, ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	l.supply += amount
	return nil
}

// Burn destroys tokens from the given account and shrinks circulating supply
func (l *MemLedger) Burn(account string, amount types.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("burn %d: %w", amount, ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[account] < amount {
		return fmt.Errorf(
			"burn %d from %s: %w",
			amount,
			account,
			ErrInsufficientBalance,
		)
	}
	l.balances[account] -= amount
	l.supply -= amount
	return nil
}

// Transfer moves tokens between accounts
func (l *MemLedger) Transfer(from, to string, amount types.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("transfer %d: %w", amount, ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf(
			"transfer %d from %s: %w",
			amount,
			from,
			ErrInsufficientBalance,
		)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Balance returns the free balance of the given account
func (l *MemLedger) Balance(account string) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// CirculatingSupply returns the total minted supply minus burns
func (l *MemLedger) CirculatingSupply() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}
