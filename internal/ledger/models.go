package ledger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"
)

// Account is a per-user points record
type Account struct {
	ID            int64
	Balance       int64
	LastEarnAt    int64 // unix seconds, 0 if never earned
	ReferralCount int64
	ReferralCode  string
	ReferredBy    *int64
}

// Withdrawal is a payout request emitted when an account's balance is zeroed
type Withdrawal struct {
	ID          string
	AccountID   int64
	Amount      int64
	RequestedAt time.Time
}

// Standing is one leaderboard row
type Standing struct {
	ID      int64
	Balance int64
}

// Store persists the whole account table. There are no partial writes:
// SaveAll replaces every account and appends the given withdrawals.
type Store interface {
	LoadAll(ctx context.Context) ([]Account, error)
	SaveAll(ctx context.Context, accounts []Account, withdrawals []Withdrawal) error
}

// Policy holds the tunable ledger constants
type Policy struct {
	Cooldown        time.Duration
	EarnAmount      int64
	ReferralBonus   int64
	MinWithdraw     int64
	LeaderboardSize int
}

// DefaultPolicy returns the stock policy: 10 points per minute,
// 50 points per referral, 100 points minimum withdrawal, top 5.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:        60 * time.Second,
		EarnAmount:      10,
		ReferralBonus:   50,
		MinWithdraw:     100,
		LeaderboardSize: 5,
	}
}

// GenerateReferralCode derives an 8 character code from the account id and creation time
func GenerateReferralCode(id int64, now time.Time) string {
	sum := md5.Sum([]byte(strconv.FormatInt(id, 10) + strconv.FormatInt(now.Unix(), 10)))
	return hex.EncodeToString(sum[:])[:8]
}
