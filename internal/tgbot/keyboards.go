package tgbot

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"running-bot/internal/flow"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏁 Соревнования", "m:comps"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои старты", "m:my"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨‍🏫 Кабинет тренера", "m:coach"),
		),
	)
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 В меню", "m:menu"),
	)
}

// selectorKeyboard renders the distance checkboxes: ✅ picked, ⬜ free,
// 🔒 already registered.
func selectorKeyboard(s *flow.Session) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, d := range s.Distances {
		mark := "⬜"
		switch {
		case s.Locked[i]:
			mark = "🔒"
		case s.Selected[i]:
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+flow.DescribeDistance(d), "sel:toggle:"+strconv.Itoa(i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", "sel:confirm"),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Отмена", "sel:cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func timeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", "tm:skip"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "tm:back"),
		),
	)
}

func followupKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Без времени", "ft:skip"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить участие", "ft:cancel"),
		),
	)
}
