package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestEnsure_IsIdempotent(t *testing.T) {
	table := NewTable(nil)

	first, created := table.Ensure(42, epoch)
	require.True(t, created)
	assert.Equal(t, int64(0), first.Balance)
	assert.Equal(t, int64(0), first.LastEarnAt)
	assert.Equal(t, int64(0), first.ReferralCount)
	assert.Nil(t, first.ReferredBy)
	assert.Len(t, first.ReferralCode, 8)

	second, created := table.Ensure(42, epoch.Add(time.Hour))
	require.False(t, created)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, table.Len())
}

func TestGenerateReferralCode_DependsOnIDAndTime(t *testing.T) {
	code := GenerateReferralCode(42, epoch)
	assert.Len(t, code, 8)
	assert.Equal(t, code, GenerateReferralCode(42, epoch))
	assert.NotEqual(t, code, GenerateReferralCode(43, epoch))
	assert.NotEqual(t, code, GenerateReferralCode(42, epoch.Add(time.Second)))
}

func TestFindByReferralCode(t *testing.T) {
	table := NewTable([]Account{
		{ID: 1, ReferralCode: "shared"},
		{ID: 2, ReferralCode: "shared"},
		{ID: 3, ReferralCode: "own3"},
	})

	acc, ok := table.FindByReferralCode("shared", 99)
	require.True(t, ok)
	assert.Equal(t, int64(1), acc.ID, "first match in load order wins")

	acc, ok = table.FindByReferralCode("shared", 1)
	require.True(t, ok)
	assert.Equal(t, int64(2), acc.ID)

	_, ok = table.FindByReferralCode("own3", 3)
	assert.False(t, ok)

	_, ok = table.FindByReferralCode("missing", 1)
	assert.False(t, ok)
}

func TestTopByBalance_OrdersWithStableTies(t *testing.T) {
	table := NewTable([]Account{
		{ID: 'A', Balance: 30, ReferralCode: "a"},
		{ID: 'B', Balance: 90, ReferralCode: "b"},
		{ID: 'C', Balance: 90, ReferralCode: "c"},
		{ID: 'D', Balance: 0, ReferralCode: "d"},
	})

	want := []Standing{
		{ID: 'B', Balance: 90},
		{ID: 'C', Balance: 90},
		{ID: 'A', Balance: 30},
		{ID: 'D', Balance: 0},
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, table.TopByBalance(5))
	}

	assert.Equal(t, want[:2], table.TopByBalance(2))
	assert.Empty(t, table.TopByBalance(0))
}

func TestAttribute(t *testing.T) {
	table := NewTable([]Account{
		{ID: 1, ReferralCode: "one"},
		{ID: 2, ReferralCode: "two"},
	})

	require.NoError(t, table.Attribute(2, 1, 50))

	referrer, _ := table.Get(1)
	assert.Equal(t, int64(50), referrer.Balance)
	assert.Equal(t, int64(1), referrer.ReferralCount)

	referred, _ := table.Get(2)
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, int64(1), *referred.ReferredBy)

	assert.ErrorIs(t, table.Attribute(2, 1, 50), ErrAlreadyReferred)
	assert.ErrorIs(t, table.Attribute(1, 1, 50), ErrSelfReferral)
	assert.ErrorIs(t, table.Attribute(1, 7, 50), ErrAccountNotFound)

	referrer, _ = table.Get(1)
	assert.Equal(t, int64(50), referrer.Balance)
	assert.Equal(t, int64(1), referrer.ReferralCount)
}

func TestEarn_NeverMovesLastEarnBackwards(t *testing.T) {
	table := NewTable([]Account{{ID: 1, LastEarnAt: 500, ReferralCode: "one"}})

	balance, err := table.Earn(1, 10, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	acc, _ := table.Get(1)
	assert.Equal(t, int64(500), acc.LastEarnAt)

	_, err = table.Earn(1, 0, 600)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWithdraw(t *testing.T) {
	table := NewTable([]Account{{ID: 1, Balance: 150, ReferralCode: "one"}})

	amount, err := table.Withdraw(1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), amount)

	acc, _ := table.Get(1)
	assert.Equal(t, int64(0), acc.Balance)

	_, err = table.Withdraw(1)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestClone_IsIndependent(t *testing.T) {
	ref := int64(2)
	table := NewTable([]Account{
		{ID: 1, Balance: 10, ReferralCode: "one", ReferredBy: &ref},
		{ID: 2, ReferralCode: "two"},
	})

	clone := table.Clone()
	_, err := clone.Earn(1, 10, 100)
	require.NoError(t, err)
	clone.Ensure(3, epoch)

	acc, _ := table.Get(1)
	assert.Equal(t, int64(10), acc.Balance)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 3, clone.Len())

	got, _ := clone.Get(1)
	*got.ReferredBy = 99
	again, _ := clone.Get(1)
	assert.Equal(t, int64(2), *again.ReferredBy)
}

func TestNewTable_KeepsFirstDuplicate(t *testing.T) {
	table := NewTable([]Account{
		{ID: 1, Balance: 5, ReferralCode: "one"},
		{ID: 1, Balance: 9, ReferralCode: "dup"},
	})

	assert.Equal(t, 1, table.Len())
	acc, _ := table.Get(1)
	assert.Equal(t, int64(5), acc.Balance)
}
