package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/ykvlv/smoke-bot/internal/domain"
)

// UI texts in English
const (
	startFmt = "👋 Hi, %s!\n\n" +
		"I will help you quit smoking by slowly stretching the time between cigarettes.\n\n" +
		"🚬 /smoke – log a cigarette\n" +
		"📊 /progress – show your progress\n" +
		"⚙️ /settings – reduction coefficient and intervals\n" +
		"❓ /help – how it works\n\n" +
		"Reduction coefficient: %s\n" +
		"Initial interval: %s\n\n" +
		"Press /smoke right after your next cigarette."

	helpText = "❓ Commands\n\n" +
		"🚬 /smoke – log a cigarette; I will tell you when the next one is allowed\n" +
		"📊 /progress – current interval and projected quit date\n" +
		"⚙️ /settings – change the reduction coefficient or interval bounds\n" +
		"⏸ /pause – stop reminders\n" +
		"▶️ /resume – resume reminders\n\n" +
		"How it works:\n" +
		"1. Press /smoke after each cigarette.\n" +
		"2. I average the gaps between your last 5 records.\n" +
		"3. The average is divided by the reduction coefficient, so it grows every time.\n" +
		"4. You get the time of the next allowed cigarette and a reminder when it comes.\n" +
		"5. Once the interval reaches the maximum, you are done."

	smokeFmt = "🚬 Logged!\n\n" +
		"⏰ Next one allowed: %s\n" +
		"📊 Current interval: %s\n" +
		"🎯 Estimated quit date: %s\n\n" +
		"Keep it up! 💪"

	progressFmt = "📊 Your progress\n\n" +
		"⏰ Current interval: %s\n" +
		"📉 Reduction coefficient: %s\n" +
		"📏 Interval bounds: %s – %s (start %s)\n" +
		"🚬 Total records: %d\n" +
		"🕑 Last record: %s\n" +
		"🎯 Target quit date: %s\n" +
		"🔔 Reminders: %s"

	settingsFmt = "⚙️ Settings\n\n" +
		"Reduction coefficient: %s\n" +
		"Intervals: start %s, min %s, max %s\n\n" +
		"Choose a new coefficient:\n" +
		"• 90%% – fast reduction (aggressive)\n" +
		"• 92%% – moderate\n" +
		"• 95%% – slow (recommended)\n" +
		"• 98%% – very slow (gentle)"

	unknownNext     = "unknown yet, log one more"
	notCalculated   = "not calculated yet"
	noRecords       = "none yet"
	quitCappedFmt   = "not within a year (after %s) – try a lower coefficient"
	remindersOn     = "on"
	remindersOff    = "off"
	askCoefficient  = "Send a coefficient between 0.01 and 1, e.g. 0.93 or 93%"
	askIntervals    = "Send three numbers in hours: start min max, e.g. 2 0.5 24"
	badCoefficient  = "That coefficient does not work. Use a value between 0.01 and 1, e.g. 0.95."
	badIntervals    = "Could not read that. Example: 2 0.5 24 (start, min, max; min ≤ max)."
	genericFailure  = "Something went wrong, please try again later."
	coefficientSet  = "✅ Reduction coefficient set to %s."
	intervalsSet    = "✅ Intervals updated: start %s, min %s, max %s."
	pausedText      = "Reminders paused ⏸"
	resumedText     = "Reminders resumed ▶️"
	dateLayout      = "02.01.2006"
	timestampLayout = "02.01.2006 15:04 (MST)"
)

var coefficientPresets = []decimal.Decimal{
	decimal.RequireFromString("0.90"),
	decimal.RequireFromString("0.92"),
	decimal.RequireFromString("0.95"),
	decimal.RequireFromString("0.98"),
}

// mainMenuKeyboard builds the reply keyboard; the last row toggles reminders.
func mainMenuKeyboard(reminders bool) tgbotapi.ReplyKeyboardMarkup {
	toggle := "/pause"
	if !reminders {
		toggle = "/resume"
	}
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/smoke"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/progress"),
			tgbotapi.NewKeyboardButton("/settings"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(toggle),
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
}

// settingsInlineKeyboard lists coefficient presets two per row, marking the current one.
func settingsInlineKeyboard(current decimal.Decimal) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range coefficientPresets {
		label := domain.FormatPercent(c)
		if c.Equal(current) {
			label += " ✅"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbCoefPrefix+c.StringFixed(2)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", cbCoefCustom),
			tgbotapi.NewInlineKeyboardButtonData("📏 Intervals", cbIntervals),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
