package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	months := []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	for i, m := range months {
		message.SetString(lang, monthKey(i+1), m)
		message.SetString(lang, monthInKey(i+1), m)
	}

	message.SetString(lang, "start", "🎂 Hi! This bot reminds you about birthdays.\n\nEnter your secret code to sign in:")
	message.SetString(lang, "code.wrong", "❌ Wrong code. Try again:")
	message.SetString(lang, "welcome", "✅ Hi, %s!\n\nYou are signed in. Your list has %d birthdays.\n\n%s")
	message.SetString(lang, "commands", "Commands:\n/month — birthdays this month\n/today — birthdays today\n/list — full list\n/add — add a birthday\n/del — delete a birthday\n/help — help")
	message.SetString(lang, "cancelled", "Cancelled.")
	message.SetString(lang, "unauthorized", "⚠️ Sign in first: /start")
	message.SetString(lang, "logout", "👋 Signed out. To come back: /start")
	message.SetString(lang, "month.header", "🎂 Birthdays in %s:\n")
	message.SetString(lang, "month.empty", "📭 No birthdays in %s.")
	message.SetString(lang, "list.header", "📋 Birthday list:\n")
	message.SetString(lang, "list.empty", "📭 The list is empty. Add one: /add Name DD.MM")
	message.SetString(lang, "add.usage", "📝 Format: /add Name DD.MM\nExample: /add Mom 15.03")
	message.SetString(lang, "add.bad_date", "❌ Bad date. Use DD.MM")
	message.SetString(lang, "add.done", "✅ Added: %s — %02d.%02d")
	message.SetString(lang, "del.usage", "📝 Format: /del Name\nExample: /del Mom")
	message.SetString(lang, "del.done", "✅ Deleted: %s — %02d.%02d")
	message.SetString(lang, "del.not_found", "❌ Not found: %s")
	message.SetString(lang, "today.none", "📭 No birthdays today.")
	message.SetString(lang, "today.notice", "🎉 Birthday today:\n%s\n\nDon't forget to congratulate! 🎂")
	message.SetString(lang, "monthly.header", "📅 %s — birthdays:\n")
	message.SetString(lang, "storage", "⚠️ Could not save your data. Try again later.")
	message.SetString(lang, "unknown", "🤔 I don't understand. Commands: /help")
	message.SetString(lang, "help", "🎂 Birthday reminder bot\n\nCommands:\n/start — sign in\n/month — birthdays this month\n/today — birthdays today\n/list — full list\n/add Name DD.MM — add\n/del Name — delete\n/logout — sign out\n/help — help\n\nReminders:\n• on the 1st — month overview\n• on the day — birthday reminder")
}
