package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Russian

	months := []string{"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
		"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь"}
	monthsIn := []string{"январе", "феврале", "марте", "апреле", "мае", "июне",
		"июле", "августе", "сентябре", "октябре", "ноябре", "декабре"}
	for i := range months {
		message.SetString(lang, monthKey(i+1), months[i])
		message.SetString(lang, monthInKey(i+1), monthsIn[i])
	}

	message.SetString(lang, "start", "🎂 Привет! Это бот напоминаний о днях рождения.\n\nВведи свой секретный код для авторизации:")
	message.SetString(lang, "code.wrong", "❌ Неверный код. Попробуй ещё раз:")
	message.SetString(lang, "welcome", "✅ Привет, %s!\n\nТы авторизован. В списке %d дней рождения.\n\n%s")
	message.SetString(lang, "commands", "Команды:\n/month — ДР в этом месяце\n/today — ДР сегодня\n/list — весь список\n/add — добавить ДР\n/del — удалить ДР\n/help — помощь")
	message.SetString(lang, "cancelled", "Отменено.")
	message.SetString(lang, "unauthorized", "⚠️ Сначала авторизуйся: /start")
	message.SetString(lang, "logout", "👋 Сессия завершена. Чтобы вернуться: /start")
	message.SetString(lang, "month.header", "🎂 Дни рождения в %s:\n")
	message.SetString(lang, "month.empty", "📭 В %s нет дней рождения.")
	message.SetString(lang, "list.header", "📋 Список дней рождения:\n")
	message.SetString(lang, "list.empty", "📭 Список пуст. Добавь ДР: /add Имя ДД.ММ")
	message.SetString(lang, "add.usage", "📝 Формат: /add Имя ДД.ММ\nПример: /add Мама 15.03")
	message.SetString(lang, "add.bad_date", "❌ Неверный формат даты. Используй ДД.ММ")
	message.SetString(lang, "add.done", "✅ Добавлено: %s — %02d.%02d")
	message.SetString(lang, "del.usage", "📝 Формат: /del Имя\nПример: /del Мама")
	message.SetString(lang, "del.done", "✅ Удалено: %s — %02d.%02d")
	message.SetString(lang, "del.not_found", "❌ Не найдено: %s")
	message.SetString(lang, "today.none", "📭 Сегодня дней рождения нет.")
	message.SetString(lang, "today.notice", "🎉 Сегодня день рождения:\n%s\n\nНе забудь поздравить! 🎂")
	message.SetString(lang, "monthly.header", "📅 %s — дни рождения:\n")
	message.SetString(lang, "storage", "⚠️ Не удалось сохранить данные. Попробуй позже.")
	message.SetString(lang, "unknown", "🤔 Не понимаю. Список команд: /help")
	message.SetString(lang, "help", "🎂 Бот напоминаний о ДР\n\nКоманды:\n/start — авторизация\n/month — ДР в этом месяце\n/today — ДР сегодня\n/list — весь список\n/add Имя ДД.ММ — добавить\n/del Имя — удалить\n/logout — выйти\n/help — справка\n\nАвтонапоминания:\n• 1 числа — обзор месяца\n• В день ДР — напоминание")
}
