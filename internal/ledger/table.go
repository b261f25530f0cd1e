package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/samber/lo"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAlreadyReferred   = errors.New("account already has a referrer")
	ErrSelfReferral      = errors.New("account cannot refer itself")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)

// Table is the in-memory account repository. Accounts keep the order they
// were loaded or created in; that order breaks every tie.
type Table struct {
	order    []int64
	accounts map[int64]*Account
	codes    map[string][]int64
}

// NewTable builds a table from accounts in load order. A repeated id keeps its first record.
func NewTable(accounts []Account) *Table {
	t := &Table{
		order:    make([]int64, 0, len(accounts)),
		accounts: make(map[int64]*Account, len(accounts)),
		codes:    make(map[string][]int64, len(accounts)),
	}
	for _, a := range accounts {
		if _, ok := t.accounts[a.ID]; ok {
			continue
		}
		acc := a
		if a.ReferredBy != nil {
			ref := *a.ReferredBy
			acc.ReferredBy = &ref
		}
		t.insert(&acc)
	}
	return t
}

func (t *Table) insert(acc *Account) {
	t.order = append(t.order, acc.ID)
	t.accounts[acc.ID] = acc
	t.codes[acc.ReferralCode] = append(t.codes[acc.ReferralCode], acc.ID)
}

// Len returns the number of accounts
func (t *Table) Len() int {
	return len(t.order)
}

// Get returns a copy of the account with the given id
func (t *Table) Get(id int64) (Account, bool) {
	acc, ok := t.accounts[id]
	if !ok {
		return Account{}, false
	}
	return copyAccount(acc), true
}

// Ensure returns the existing account or creates a fresh one.
// The second result reports whether the account was created.
func (t *Table) Ensure(id int64, now time.Time) (Account, bool) {
	if acc, ok := t.accounts[id]; ok {
		return copyAccount(acc), false
	}

	acc := &Account{
		ID:           id,
		ReferralCode: GenerateReferralCode(id, now),
	}
	t.insert(acc)
	return copyAccount(acc), true
}

// FindByReferralCode returns the first account in table order owning code, skipping excluding
func (t *Table) FindByReferralCode(code string, excluding int64) (Account, bool) {
	for _, id := range t.codes[code] {
		if id == excluding {
			continue
		}
		return copyAccount(t.accounts[id]), true
	}
	return Account{}, false
}

// TopByBalance returns up to n accounts by descending balance
func (t *Table) TopByBalance(n int) []Standing {
	if n <= 0 {
		return nil
	}

	standings := lo.Map(t.order, func(id int64, _ int) Standing {
		return Standing{ID: id, Balance: t.accounts[id].Balance}
	})
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Balance > standings[j].Balance
	})

	return lo.Slice(standings, 0, n)
}

// Earn credits amount and moves the last earn time forward to at
func (t *Table) Earn(id, amount, at int64) (int64, error) {
	acc, ok := t.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	acc.Balance += amount
	if at > acc.LastEarnAt {
		acc.LastEarnAt = at
	}
	return acc.Balance, nil
}

// Attribute links referredID to referrerID once and pays the referrer bonus
func (t *Table) Attribute(referredID, referrerID, bonus int64) error {
	if referredID == referrerID {
		return ErrSelfReferral
	}

	referred, ok := t.accounts[referredID]
	if !ok {
		return ErrAccountNotFound
	}
	referrer, ok := t.accounts[referrerID]
	if !ok {
		return ErrAccountNotFound
	}
	if referred.ReferredBy != nil {
		return ErrAlreadyReferred
	}
	if bonus < 0 {
		return ErrInvalidAmount
	}

	ref := referrerID
	referred.ReferredBy = &ref
	referrer.ReferralCount++
	referrer.Balance += bonus
	return nil
}

// Withdraw zeroes the balance and returns the amount that was held
func (t *Table) Withdraw(id int64) (int64, error) {
	acc, ok := t.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if acc.Balance <= 0 {
		return 0, ErrNothingToWithdraw
	}

	amount := acc.Balance
	acc.Balance = 0
	return amount, nil
}

// Accounts returns copies of all accounts in table order
func (t *Table) Accounts() []Account {
	return lo.Map(t.order, func(id int64, _ int) Account {
		return copyAccount(t.accounts[id])
	})
}

// Clone returns an independent deep copy
func (t *Table) Clone() *Table {
	return NewTable(t.Accounts())
}

func copyAccount(acc *Account) Account {
	out := *acc
	if acc.ReferredBy != nil {
		ref := *acc.ReferredBy
		out.ReferredBy = &ref
	}
	return out
}
