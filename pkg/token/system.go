package token

import (
	"math/big"
	"sync"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
)

// System tracks account balances on the value rail the governance system
// pays out to and stakes from
type System struct {
	balances map[string]*big.Int
	mutex    sync.RWMutex
}

// NewSystem creates a new token system
func NewSystem() *System {
	return &System{
		balances: make(map[string]*big.Int),
	}
}

// Balance returns the balance of an address
func (s *System) Balance(address string) *big.Int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if balance, exists := s.balances[address]; exists {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

// Credit adds value to an address
func (s *System) Credit(address string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("credit amount must be positive")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	balance, exists := s.balances[address]
	if !exists {
		balance = big.NewInt(0)
	}
	s.balances[address] = new(big.Int).Add(balance, amount)
	return nil
}

// Debit removes value from an address
func (s *System) Debit(address string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("debit amount must be positive")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	balance, exists := s.balances[address]
	if !exists {
		balance = big.NewInt(0)
	}
	if balance.Cmp(amount) < 0 {
		return errs.Resourcef("insufficient balance for %s", address)
	}
	s.balances[address] = new(big.Int).Sub(balance, amount)
	return nil
}

// Transfer moves value from one address to another
func (s *System) Transfer(from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errs.Validationf("transfer amount must be positive")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	fromBalance, exists := s.balances[from]
	if !exists {
		fromBalance = big.NewInt(0)
	}
	if fromBalance.Cmp(amount) < 0 {
		return errs.Resourcef("insufficient balance for %s", from)
	}

	toBalance, exists := s.balances[to]
	if !exists {
		toBalance = big.NewInt(0)
	}

	s.balances[from] = new(big.Int).Sub(fromBalance, amount)
	s.balances[to] = new(big.Int).Add(toBalance, amount)
	return nil
}

// TotalSupply returns the sum of all balances
func (s *System) TotalSupply() *big.Int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := big.NewInt(0)
	for _, balance := range s.balances {
		total = new(big.Int).Add(total, balance)
	}
	return total
}
