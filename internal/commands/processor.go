package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suspectuso/earn-bot/internal/ledger"
)

// Reply is an outbound message. Replies to the acting user carry the menu,
// side notifications do not.
type Reply struct {
	ChatID int64
	Text   string
	Menu   Menu
}

// Outcome is what processing one event produced
type Outcome struct {
	Command     Command
	Replies     []Reply
	Withdrawals []ledger.Withdrawal
	Changed     bool
}

// ProcessorOptions configures a Processor
type ProcessorOptions struct {
	Policy           ledger.Policy
	BotUsername      string
	AdminChatID      int64
	ReplyUnknownText bool
	NewID            func() string
}

// Processor runs the ledger commands against an account table
type Processor struct {
	policy           ledger.Policy
	botUsername      string
	adminChatID      int64
	replyUnknownText bool
	newID            func() string
}

// NewProcessor creates a new command processor
func NewProcessor(opts ProcessorOptions) *Processor {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Processor{
		policy:           opts.Policy,
		botUsername:      opts.BotUsername,
		adminChatID:      opts.AdminChatID,
		replyUnknownText: opts.ReplyUnknownText,
		newID:            newID,
	}
}

// Process ensures the acting account exists and executes the event's command
func (p *Processor) Process(t *ledger.Table, ev Event, now time.Time) Outcome {
	acc, created := t.Ensure(ev.ChatID, now)
	out := Outcome{Command: ev.Command, Changed: created}

	switch ev.Command {
	case CmdStart:
		p.start(t, acc, ev.Argument, &out)
	case CmdBalance:
		out.reply(acc.ID, fmt.Sprintf("💳 Your Balance\nPoints: %d\nReferrals: %d", acc.Balance, acc.ReferralCount))
	case CmdEarn:
		p.earn(t, acc, now, &out)
	case CmdLeaderboard:
		out.reply(acc.ID, p.leaderboard(t))
	case CmdReferrals:
		out.reply(acc.ID, fmt.Sprintf(
			"👥 Referral System\nYour code: <b>%s</b>\nReferrals: %d\nInvite link: %s\n%d points per referral!",
			acc.ReferralCode, acc.ReferralCount, p.InviteLink(acc.ReferralCode), p.policy.ReferralBonus,
		))
	case CmdWithdraw:
		p.withdraw(t, acc, now, &out)
	case CmdHelp:
		out.reply(acc.ID, p.help())
	case CmdUnknown:
		out.reply(acc.ID, "Unknown command. Please use the buttons below.")
	case CmdNone:
		if p.replyUnknownText {
			out.Command = CmdUnknown
			out.reply(acc.ID, "Unknown command. Use /help or the buttons below.")
		}
	}

	return out
}

// InviteLink builds the deep link that starts the bot with a referral code
func (p *Processor) InviteLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", p.botUsername, code)
}

func (p *Processor) start(t *ledger.Table, acc ledger.Account, code string, out *Outcome) {
	if code != "" && acc.ReferredBy == nil {
		if referrer, ok := t.FindByReferralCode(code, acc.ID); ok {
			if err := t.Attribute(acc.ID, referrer.ID, p.policy.ReferralBonus); err == nil {
				out.Changed = true
				out.Replies = append(out.Replies, Reply{
					ChatID: referrer.ID,
					Text:   fmt.Sprintf("🎉 New referral! +%d points bonus!", p.policy.ReferralBonus),
				})
			}
		}
	}

	out.reply(acc.ID, fmt.Sprintf(
		"Welcome to Earning Bot!\nEarn points, invite friends, and withdraw your earnings!\nYour referral code: <b>%s</b>",
		acc.ReferralCode,
	))
}

func (p *Processor) earn(t *ledger.Table, acc ledger.Account, now time.Time, out *Outcome) {
	elapsed := now.Sub(time.Unix(acc.LastEarnAt, 0))
	if elapsed < 0 {
		elapsed = 0
	}

	if elapsed < p.policy.Cooldown {
		out.reply(acc.ID, fmt.Sprintf("⏳ Please wait %d seconds before earning again!", ceilSeconds(p.policy.Cooldown-elapsed)))
		return
	}

	balance, err := t.Earn(acc.ID, p.policy.EarnAmount, now.Unix())
	if err != nil {
		out.reply(acc.ID, "Earning is unavailable right now.")
		return
	}
	out.Changed = true
	out.reply(acc.ID, fmt.Sprintf("✅ You earned %d points!\nNew balance: %d", p.policy.EarnAmount, balance))
}

func (p *Processor) leaderboard(t *ledger.Table) string {
	var sb strings.Builder
	sb.WriteString("🏆 Top Earners\n")
	for i, s := range t.TopByBalance(p.policy.LeaderboardSize) {
		fmt.Fprintf(&sb, "%d. User %d: %d points\n", i+1, s.ID, s.Balance)
	}
	return sb.String()
}

func (p *Processor) withdraw(t *ledger.Table, acc ledger.Account, now time.Time, out *Outcome) {
	if acc.Balance < p.policy.MinWithdraw || acc.Balance <= 0 {
		need := max(p.policy.MinWithdraw-acc.Balance, 1)
		out.reply(acc.ID, fmt.Sprintf(
			"🏧 Withdrawal\nMinimum: %d points\nYour balance: %d\n%d more %s needed!",
			p.policy.MinWithdraw, acc.Balance, need, plural(need, "point", "points"),
		))
		return
	}

	amount, err := t.Withdraw(acc.ID)
	if err != nil {
		out.reply(acc.ID, "Withdrawal is unavailable right now.")
		return
	}

	w := ledger.Withdrawal{
		ID:          p.newID(),
		AccountID:   acc.ID,
		Amount:      amount,
		RequestedAt: now.UTC(),
	}
	out.Changed = true
	out.Withdrawals = append(out.Withdrawals, w)
	out.reply(acc.ID, fmt.Sprintf(
		"🏧 Withdrawal of %d points requested!\nNew balance: 0\nOur team will process it soon.",
		amount,
	))

	if p.adminChatID != 0 {
		out.Replies = append(out.Replies, Reply{
			ChatID: p.adminChatID,
			Text: fmt.Sprintf("🏧 Withdrawal request <code>%s</code>\nUser %d requested %d points.",
				w.ID, w.AccountID, w.Amount),
		})
	}
}

func (p *Processor) help() string {
	cooldown := ceilSeconds(p.policy.Cooldown)
	return fmt.Sprintf(
		"❓ Help\n💰 Earn: Get %d points every %d %s\n👥 Refer: %d points/ref\n🏧 Withdraw: Min %d points\nUse buttons below to navigate!",
		p.policy.EarnAmount, cooldown, plural(cooldown, "second", "seconds"), p.policy.ReferralBonus, p.policy.MinWithdraw,
	)
}

func (o *Outcome) reply(chatID int64, text string) {
	o.Replies = append(o.Replies, Reply{ChatID: chatID, Text: text, Menu: MainMenu()})
}

// ceilSeconds rounds d up to whole seconds
func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
