package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestProcessor() *Processor {
	return NewProcessor(ProcessorOptions{
		Policy:      ledger.DefaultPolicy(),
		BotUsername: "earn_points_bot",
		NewID:       func() string { return "w-1" },
	})
}

func TestProcess_CreatesAccountOnFirstEvent(t *testing.T) {
	table := ledger.NewTable(nil)
	out := newTestProcessor().Process(table, Event{ChatID: 10, Command: CmdBalance}, now)

	assert.True(t, out.Changed)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "Points: 0")
	assert.Equal(t, MainMenu(), out.Replies[0].Menu)

	out = newTestProcessor().Process(table, Event{ChatID: 10, Command: CmdBalance}, now)
	assert.False(t, out.Changed)
}

func TestProcess_EarnCooldown(t *testing.T) {
	p := newTestProcessor()

	t.Run("within cooldown", func(t *testing.T) {
		table := ledger.NewTable([]ledger.Account{
			{ID: 1, Balance: 40, LastEarnAt: now.Unix() - 30, ReferralCode: "c1"},
		})
		out := p.Process(table, Event{ChatID: 1, Command: CmdEarn}, now)

		assert.False(t, out.Changed)
		require.Len(t, out.Replies, 1)
		assert.Contains(t, out.Replies[0].Text, "wait 30 seconds")
		acc, _ := table.Get(1)
		assert.Equal(t, int64(40), acc.Balance)
		assert.Equal(t, now.Unix()-30, acc.LastEarnAt)
	})

	t.Run("after cooldown", func(t *testing.T) {
		table := ledger.NewTable([]ledger.Account{
			{ID: 1, Balance: 40, LastEarnAt: now.Unix() - 61, ReferralCode: "c1"},
		})
		out := p.Process(table, Event{ChatID: 1, Command: CmdEarn}, now)

		assert.True(t, out.Changed)
		assert.Contains(t, out.Replies[0].Text, "New balance: 50")
		acc, _ := table.Get(1)
		assert.Equal(t, int64(50), acc.Balance)
		assert.Equal(t, now.Unix(), acc.LastEarnAt)
	})

	t.Run("clock behind last earn", func(t *testing.T) {
		table := ledger.NewTable([]ledger.Account{
			{ID: 1, LastEarnAt: now.Unix() + 100, ReferralCode: "c1"},
		})
		out := p.Process(table, Event{ChatID: 1, Command: CmdEarn}, now)

		assert.False(t, out.Changed)
		assert.Contains(t, out.Replies[0].Text, "wait 60 seconds")
	})
}

func TestProcess_ReferralAttributedOnce(t *testing.T) {
	p := newTestProcessor()
	table := ledger.NewTable([]ledger.Account{
		{ID: 100, ReferralCode: "referXYZ"},
		{ID: 200, ReferralCode: "otherABC"},
	})

	out := p.Process(table, Event{ChatID: 1, Command: CmdStart, Argument: "referXYZ"}, now)
	require.Len(t, out.Replies, 2)
	assert.Equal(t, int64(100), out.Replies[0].ChatID)
	assert.Contains(t, out.Replies[0].Text, "+50 points")
	assert.Nil(t, out.Replies[0].Menu)
	assert.Equal(t, int64(1), out.Replies[1].ChatID)

	newcomer, _ := table.Get(1)
	require.NotNil(t, newcomer.ReferredBy)
	assert.Equal(t, int64(100), *newcomer.ReferredBy)

	for _, code := range []string{"referXYZ", "otherABC"} {
		out = p.Process(table, Event{ChatID: 1, Command: CmdStart, Argument: code}, now)
		assert.False(t, out.Changed)
		require.Len(t, out.Replies, 1)
	}

	referrer, _ := table.Get(100)
	assert.Equal(t, int64(50), referrer.Balance)
	assert.Equal(t, int64(1), referrer.ReferralCount)
	other, _ := table.Get(200)
	assert.Equal(t, int64(0), other.Balance)
	assert.Equal(t, int64(0), other.ReferralCount)
	newcomer, _ = table.Get(1)
	assert.Equal(t, int64(100), *newcomer.ReferredBy)
}

func TestProcess_SelfReferralRejected(t *testing.T) {
	p := newTestProcessor()
	table := ledger.NewTable([]ledger.Account{{ID: 5, ReferralCode: "mine1234"}})

	out := p.Process(table, Event{ChatID: 5, Command: CmdStart, Argument: "mine1234"}, now)

	assert.False(t, out.Changed)
	require.Len(t, out.Replies, 1)
	acc, _ := table.Get(5)
	assert.Nil(t, acc.ReferredBy)
	assert.Equal(t, int64(0), acc.ReferralCount)
	assert.Equal(t, int64(0), acc.Balance)
}

func TestProcess_UnknownReferralCodeIsSilent(t *testing.T) {
	table := ledger.NewTable(nil)
	out := newTestProcessor().Process(table, Event{ChatID: 5, Command: CmdStart, Argument: "nope"}, now)

	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "Welcome")
	acc, _ := table.Get(5)
	assert.Nil(t, acc.ReferredBy)
}

func TestProcess_WithdrawalFloor(t *testing.T) {
	p := newTestProcessor()

	t.Run("short by one", func(t *testing.T) {
		table := ledger.NewTable([]ledger.Account{{ID: 1, Balance: 99, ReferralCode: "c1"}})
		out := p.Process(table, Event{ChatID: 1, Command: CmdWithdraw}, now)

		assert.False(t, out.Changed)
		assert.Empty(t, out.Withdrawals)
		assert.Contains(t, out.Replies[0].Text, "1 more point needed")
		acc, _ := table.Get(1)
		assert.Equal(t, int64(99), acc.Balance)
	})

	t.Run("enough", func(t *testing.T) {
		table := ledger.NewTable([]ledger.Account{{ID: 1, Balance: 150, ReferralCode: "c1"}})
		out := p.Process(table, Event{ChatID: 1, Command: CmdWithdraw}, now)

		assert.True(t, out.Changed)
		assert.Contains(t, out.Replies[0].Text, "Withdrawal of 150 points requested")
		require.Len(t, out.Withdrawals, 1)
		assert.Equal(t, ledger.Withdrawal{ID: "w-1", AccountID: 1, Amount: 150, RequestedAt: now}, out.Withdrawals[0])
		acc, _ := table.Get(1)
		assert.Equal(t, int64(0), acc.Balance)
	})

	t.Run("shortfall plural", func(t *testing.T) {
		table := ledger.NewTable([]ledger.Account{{ID: 1, Balance: 10, ReferralCode: "c1"}})
		out := p.Process(table, Event{ChatID: 1, Command: CmdWithdraw}, now)
		assert.Contains(t, out.Replies[0].Text, "90 more points needed")
	})
}

func TestProcess_WithdrawalNotifiesAdmin(t *testing.T) {
	p := NewProcessor(ProcessorOptions{
		Policy:      ledger.DefaultPolicy(),
		AdminChatID: 777,
		NewID:       func() string { return "req-9" },
	})
	table := ledger.NewTable([]ledger.Account{{ID: 1, Balance: 300, ReferralCode: "c1"}})

	out := p.Process(table, Event{ChatID: 1, Command: CmdWithdraw}, now)

	require.Len(t, out.Replies, 2)
	assert.Equal(t, int64(777), out.Replies[1].ChatID)
	assert.Contains(t, out.Replies[1].Text, "req-9")
	assert.Contains(t, out.Replies[1].Text, "300 points")
}

func TestProcess_Leaderboard(t *testing.T) {
	table := ledger.NewTable([]ledger.Account{
		{ID: 11, Balance: 30, ReferralCode: "a"},
		{ID: 22, Balance: 90, ReferralCode: "b"},
		{ID: 33, Balance: 90, ReferralCode: "c"},
		{ID: 44, Balance: 0, ReferralCode: "d"},
	})

	out := newTestProcessor().Process(table, Event{ChatID: 11, Command: CmdLeaderboard}, now)

	want := "🏆 Top Earners\n" +
		"1. User 22: 90 points\n" +
		"2. User 33: 90 points\n" +
		"3. User 11: 30 points\n" +
		"4. User 44: 0 points\n"
	assert.Equal(t, want, out.Replies[0].Text)
}

func TestProcess_Referrals(t *testing.T) {
	table := ledger.NewTable([]ledger.Account{{ID: 1, ReferralCount: 3, ReferralCode: "abcd1234"}})
	out := newTestProcessor().Process(table, Event{ChatID: 1, Command: CmdReferrals}, now)

	text := out.Replies[0].Text
	assert.Contains(t, text, "<b>abcd1234</b>")
	assert.Contains(t, text, "Referrals: 3")
	assert.Contains(t, text, "https://t.me/earn_points_bot?start=abcd1234")
}

func TestProcess_UnknownAndFreeText(t *testing.T) {
	table := ledger.NewTable([]ledger.Account{{ID: 1, ReferralCode: "c1"}})

	out := newTestProcessor().Process(table, Event{ChatID: 1, Source: SourceCallback, Command: CmdUnknown}, now)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "Unknown command")

	out = newTestProcessor().Process(table, Event{ChatID: 1, Command: CmdNone}, now)
	assert.Empty(t, out.Replies)

	strict := NewProcessor(ProcessorOptions{Policy: ledger.DefaultPolicy(), ReplyUnknownText: true})
	out = strict.Process(table, Event{ChatID: 1, Command: CmdNone}, now)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, CmdUnknown, out.Command)
	assert.Contains(t, out.Replies[0].Text, "/help")
}

func TestProcess_HelpUsesPolicy(t *testing.T) {
	policy := ledger.DefaultPolicy()
	policy.EarnAmount = 25
	policy.MinWithdraw = 500
	p := NewProcessor(ProcessorOptions{Policy: policy})

	out := p.Process(ledger.NewTable(nil), Event{ChatID: 1, Command: CmdHelp}, now)
	assert.Contains(t, out.Replies[0].Text, "Get 25 points")
	assert.Contains(t, out.Replies[0].Text, "Min 500 points")
	assert.Contains(t, out.Replies[0].Text, "every 60 seconds")
	assert.NotContains(t, out.Replies[0].Text, "1m0s")
}

func TestProcess_SubSecondCooldownStillApplies(t *testing.T) {
	policy := ledger.DefaultPolicy()
	policy.Cooldown = 500 * time.Millisecond
	p := NewProcessor(ProcessorOptions{Policy: policy})

	table := ledger.NewTable([]ledger.Account{
		{ID: 1, Balance: 40, LastEarnAt: now.Unix(), ReferralCode: "c1"},
	})

	out := p.Process(table, Event{ChatID: 1, Command: CmdEarn}, now.Add(200*time.Millisecond))
	assert.False(t, out.Changed)
	assert.Contains(t, out.Replies[0].Text, "wait 1 seconds")

	out = p.Process(table, Event{ChatID: 1, Command: CmdEarn}, now.Add(time.Second))
	assert.True(t, out.Changed)
	assert.Contains(t, out.Replies[0].Text, "New balance: 50")
}
