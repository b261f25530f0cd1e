package telegram

import (
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/earn-bot/internal/commands"
)

// MenuKeyboard converts a menu into an inline keyboard.
// Each button's callback data is its action token. An empty menu has no keyboard.
func MenuKeyboard(menu commands.Menu) *models.InlineKeyboardMarkup {
	if len(menu) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(menu))
	for _, row := range menu {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         btn.Label,
				CallbackData: string(btn.Action),
			})
		}
		rows = append(rows, buttons)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
