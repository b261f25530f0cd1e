package commands

import "github.com/samber/lo"

// Button is one menu entry; Action doubles as the callback token
type Button struct {
	Label  string
	Action Command
}

// Menu is a grid of buttons, one slice per row
type Menu [][]Button

// MainMenu returns the six ledger actions arranged in pairs
func MainMenu() Menu {
	return Menu{
		{{Label: "💰 Earn", Action: CmdEarn}, {Label: "💳 Balance", Action: CmdBalance}},
		{{Label: "🏆 Leaderboard", Action: CmdLeaderboard}, {Label: "👥 Referrals", Action: CmdReferrals}},
		{{Label: "🏧 Withdraw", Action: CmdWithdraw}, {Label: "❓ Help", Action: CmdHelp}},
	}
}

// Actions lists every button action in row order
func (m Menu) Actions() []Command {
	return lo.Map(lo.Flatten(m), func(b Button, _ int) Command {
		return b.Action
	})
}
