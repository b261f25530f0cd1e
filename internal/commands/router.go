package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrMalformedInput = errors.New("malformed update")
	ErrStoreLoad      = errors.New("load ledger")
	ErrStoreSave      = errors.New("save ledger")
	ErrDuplicate      = errors.New("duplicate update")
)

// Command is a ledger action a user can request
type Command string

const (
	CmdNone        Command = ""
	CmdStart       Command = "start"
	CmdBalance     Command = "balance"
	CmdEarn        Command = "earn"
	CmdLeaderboard Command = "leaderboard"
	CmdReferrals   Command = "referrals"
	CmdWithdraw    Command = "withdraw"
	CmdHelp        Command = "help"
	CmdUnknown     Command = "unknown"
)

// Source tells which update shape an event came from
type Source string

const (
	SourceMessage  Source = "message"
	SourceCallback Source = "callback"
)

// Event is the intent extracted from one inbound update
type Event struct {
	UpdateID   int64
	Source     Source
	ChatID     int64
	Command    Command
	Argument   string
	CallbackID string
}

var textCommands = map[string]Command{
	"/balance":     CmdBalance,
	"/earn":        CmdEarn,
	"/leaderboard": CmdLeaderboard,
	"/referrals":   CmdReferrals,
	"/withdraw":    CmdWithdraw,
	"/help":        CmdHelp,
}

var callbackCommands = map[string]Command{
	"earn":        CmdEarn,
	"balance":     CmdBalance,
	"leaderboard": CmdLeaderboard,
	"referrals":   CmdReferrals,
	"withdraw":    CmdWithdraw,
	"help":        CmdHelp,
}

// Parse classifies a raw Telegram update as a message or a callback and
// extracts the acting chat, command and argument.
func Parse(body []byte) (Event, error) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return Event{}, fmt.Errorf("%w: invalid json", ErrMalformedInput)
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Event{}, fmt.Errorf("%w: not an object", ErrMalformedInput)
	}

	ev := Event{UpdateID: root.Get("update_id").Int()}

	if msg := root.Get("message"); msg.Exists() {
		chatID, err := chatID(msg.Get("chat.id"))
		if err != nil {
			return Event{}, err
		}
		ev.Source = SourceMessage
		ev.ChatID = chatID
		ev.Command, ev.Argument = routeText(msg.Get("text").String())
		return ev, nil
	}

	if cb := root.Get("callback_query"); cb.Exists() {
		chatID, err := chatID(cb.Get("message.chat.id"))
		if err != nil {
			return Event{}, err
		}
		callbackID := cb.Get("id").String()
		if callbackID == "" {
			return Event{}, fmt.Errorf("%w: callback without id", ErrMalformedInput)
		}
		ev.Source = SourceCallback
		ev.ChatID = chatID
		ev.CallbackID = callbackID
		ev.Command = routeCallback(cb.Get("data").String())
		return ev, nil
	}

	return Event{}, fmt.Errorf("%w: no message or callback_query", ErrMalformedInput)
}

func chatID(v gjson.Result) (int64, error) {
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: missing chat id", ErrMalformedInput)
	}
	return v.Int(), nil
}

func routeText(text string) (Command, string) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "/start") {
		fields := strings.Fields(text)
		if len(fields) > 1 {
			return CmdStart, fields[1]
		}
		return CmdStart, ""
	}

	if cmd, ok := textCommands[text]; ok {
		return cmd, ""
	}
	return CmdNone, ""
}

func routeCallback(data string) Command {
	if cmd, ok := callbackCommands[data]; ok {
		return cmd
	}
	return CmdUnknown
}
