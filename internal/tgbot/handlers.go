package tgbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chgk-bot/internal/models"
	"chgk-bot/internal/quiz"
	"chgk-bot/internal/state"
	"chgk-bot/internal/util"
)

const (
	msgStart = `🎉 <b>Добро пожаловать на ЧГК Новый Год!</b>

📋 <b>Доступные команды:</b>

🔹 /register - Регистрация команды
🔹 /answer - Отправить ответ
🔹 /myteam - Проверить свою команду
🔹 /help - Помощь

Начните с регистрации команды! 👇`

	msgHelp = `❓ <b>Инструкция по использованию бота:</b>

<b>1. Регистрация команды:</b>
Отправьте: /register
Затем отправьте данные в формате:
<code>Название команды | Участник1, Участник2, Участник3</code>

<b>Пример:</b>
<code>Знатоки | Иван Иванов, Петр Петров, Мария Сидорова</code>

<b>2. Отправка ответа:</b>
Отправьте: /answer
Затем отправьте ответ в формате:
<code>Номер вопроса | Ваш ответ</code>

<b>Пример:</b>
<code>1 | Александр Пушкин</code>

⚠️ Можно зарегистрировать только одну команду на пользователя.`

	msgRegisterPrompt = `📝 <b>Регистрация команды</b>

Отправьте данные команды в следующем формате:

<code>Название команды | Участник1, Участник2, Участник3</code>

<b>Пример:</b>
<code>Знатоки | Иван Иванов, Петр Петров, Мария Сидорова</code>

⚠️ Используйте символ | (вертикальная черта) для разделения.`

	msgUseCommands = "❓ Используйте /start для просмотра доступных команд"

	msgRegisterFormat   = "⚠️ Неверный формат! Используйте:\n<code>Название команды | Участник1, Участник2</code>"
	msgAnswerFormat     = "⚠️ Неверный формат! Используйте:\n<code>Номер вопроса | Ваш ответ</code>"
	msgOneSeparator     = "⚠️ Неверный формат! Должен быть один символ |"
	msgRegisterEmpty    = "⚠️ Название команды и список участников не могут быть пустыми!"
	msgAnswerEmpty      = "⚠️ Номер вопроса и ответ не могут быть пустыми!"
	msgQuestionNotNum   = "⚠️ Номер вопроса должен быть числом!"
	msgRegisterFirst    = "⚠️ Сначала зарегистрируйте команду с помощью /register"
	msgNotRegistered    = "⚠️ Вы еще не зарегистрировали команду. Используйте /register"
	msgRegisterFailed   = "❌ Ошибка при регистрации. Попробуйте позже."
	msgAnswerFailed     = "❌ Ошибка при отправке ответа. Попробуйте позже."
	msgTeamLookupFailed = "❌ Ошибка при получении данных команды"
	msgAccessDenied     = "Доступ запрещён."
)

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	userID := m.From.ID
	chatID := m.Chat.ID
	txt := strings.TrimSpace(m.Text)
	if txt == "" {
		return nil
	}

	if strings.HasPrefix(txt, "/") {
		return a.dispatchCommand(ctx, userID, chatID, strings.TrimPrefix(txt, "/"))
	}
	return a.handleFreeText(ctx, userID, chatID, txt)
}

// Commands match by keyword anywhere after the marker, so "/register@bot"
// and "/registerplease" both count.
func (a *App) dispatchCommand(ctx context.Context, userID, chatID int64, cmd string) error {
	switch {
	case strings.Contains(cmd, "start"):
		return a.sendHTML(chatID, msgStart)
	case strings.Contains(cmd, "help"):
		return a.sendHTML(chatID, msgHelp)
	case strings.Contains(cmd, "register"):
		return a.cmdRegister(ctx, userID, chatID)
	case strings.Contains(cmd, "answer"):
		return a.cmdAnswer(ctx, userID, chatID)
	case strings.Contains(cmd, "myteam"):
		return a.cmdMyTeam(ctx, chatID)
	case strings.Contains(cmd, "broadcast"):
		return a.cmdBroadcast(userID, chatID)
	case strings.Contains(cmd, "export"):
		return a.cmdExport(userID, chatID)
	default:
		// unknown commands are ignored
		return nil
	}
}

func (a *App) cmdRegister(ctx context.Context, userID, chatID int64) error {
	team, err := a.svc.TeamByChat(ctx, chatID)
	if err != nil && !errors.Is(err, quiz.ErrTeamNotFound) {
		// a failed lookup must not block registration; treat as not found
		a.logger.Warn("register: team lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	if team != nil {
		return a.sendHTML(chatID, fmt.Sprintf(
			"⚠️ Вы уже зарегистрировали команду: <b>%s</b>\n\nДля изменения обратитесь к организаторам.",
			team.Name,
		))
	}

	a.states.Set(userID, state.Pending{Action: state.ActionRegister})
	return a.sendHTML(chatID, msgRegisterPrompt)
}

func (a *App) cmdAnswer(ctx context.Context, userID, chatID int64) error {
	team, err := a.svc.TeamByChat(ctx, chatID)
	if errors.Is(err, quiz.ErrTeamNotFound) {
		return a.SendText(chatID, msgRegisterFirst)
	}
	if err != nil {
		a.logger.Error("answer: team lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return a.SendText(chatID, msgTeamLookupFailed)
	}

	a.states.Set(userID, state.Pending{Action: state.ActionAnswer, TeamName: team.Name})
	return a.sendHTML(chatID, fmt.Sprintf(`✍️ <b>Отправка ответа</b>

Ваша команда: <b>%s</b>

Отправьте ответ в формате:
<code>Номер вопроса | Ваш ответ</code>

<b>Пример:</b>
<code>1 | Александр Пушкин</code>

⚠️ Используйте символ | (вертикальная черта) для разделения.`, team.Name))
}

func (a *App) cmdMyTeam(ctx context.Context, chatID int64) error {
	team, err := a.svc.TeamByChat(ctx, chatID)
	if errors.Is(err, quiz.ErrTeamNotFound) {
		return a.SendText(chatID, msgNotRegistered)
	}
	if err != nil {
		a.logger.Error("myteam: team lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return a.SendText(chatID, msgTeamLookupFailed)
	}

	return a.sendHTML(chatID, fmt.Sprintf(`👥 <b>Информация о вашей команде:</b>

📌 Название: <b>%s</b>
👤 Участники: %s
📅 Дата регистрации: %s`,
		team.Name, team.Members, formatDate(team.RegisteredAt)))
}

func (a *App) cmdBroadcast(userID, chatID int64) error {
	if !a.isAdmin(userID) {
		return a.SendText(chatID, msgAccessDenied)
	}
	a.states.Set(userID, state.Pending{Action: state.ActionBroadcast})
	return a.SendText(chatID, "Рассылка. Введите текст сообщения (будет отправлено всем зарегистрированным командам):")
}

func (a *App) cmdExport(userID, chatID int64) error {
	if !a.isAdmin(userID) {
		return a.SendText(chatID, msgAccessDenied)
	}
	token := util.HMACSHA256Hex(a.cfg.ExportTokenSecret, "export:answers")
	base := a.cfg.BasePublicURL
	if base == "" {
		base = "http://localhost" + a.cfg.HTTPAddr
	}
	return a.SendText(chatID, "📤 CSV выгрузка ответов: "+base+"/export/answers.csv?token="+token)
}

// ---------- free text ----------

func (a *App) handleFreeText(ctx context.Context, userID, chatID int64, txt string) error {
	p, ok := a.states.Get(userID)
	if !ok {
		return a.SendText(chatID, msgUseCommands)
	}

	switch p.Action {
	case state.ActionRegister:
		return a.finishRegistration(ctx, userID, chatID, txt)
	case state.ActionAnswer:
		return a.finishAnswer(ctx, userID, chatID, txt, p.TeamName)
	case state.ActionBroadcast:
		return a.finishBroadcast(ctx, userID, chatID, txt)
	default:
		a.states.Clear(userID)
		return a.SendText(chatID, msgUseCommands)
	}
}

// finishRegistration consumes "Название | Участники". Format errors keep the
// pending action so the user can retry; store failures clear it.
func (a *App) finishRegistration(ctx context.Context, userID, chatID int64, txt string) error {
	name, members, err := quiz.SplitPair(txt)
	switch {
	case errors.Is(err, quiz.ErrNoSeparator):
		return a.sendHTML(chatID, msgRegisterFormat)
	case errors.Is(err, quiz.ErrManySeparator):
		return a.SendText(chatID, msgOneSeparator)
	case errors.Is(err, quiz.ErrEmptyField):
		return a.SendText(chatID, msgRegisterEmpty)
	}

	team, err := a.svc.RegisterTeam(ctx, chatID, name, members)
	var already *quiz.AlreadyRegisteredError
	if errors.As(err, &already) {
		a.states.Clear(userID)
		return a.sendHTML(chatID, fmt.Sprintf(
			"⚠️ Вы уже зарегистрировали команду: <b>%s</b>", already.TeamName))
	}
	if err != nil {
		a.logger.Error("save team failed", zap.Int64("chat_id", chatID), zap.Error(err))
		a.states.Clear(userID)
		return a.SendText(chatID, msgRegisterFailed)
	}

	a.states.Clear(userID)
	return a.sendHTML(chatID, fmt.Sprintf(`✅ <b>Команда успешно зарегистрирована!</b>

📌 Название: <b>%s</b>
👥 Участники: %s

Теперь вы можете отправлять ответы командой /answer`, team.Name, team.Members))
}

// finishAnswer consumes "Номер | Ответ". teamName comes from the pending
// context when /answer resolved it; otherwise the team is looked up fresh.
func (a *App) finishAnswer(ctx context.Context, userID, chatID int64, txt, teamName string) error {
	qstr, text, err := quiz.SplitPair(txt)
	switch {
	case errors.Is(err, quiz.ErrNoSeparator):
		return a.sendHTML(chatID, msgAnswerFormat)
	case errors.Is(err, quiz.ErrManySeparator):
		return a.SendText(chatID, msgOneSeparator)
	case errors.Is(err, quiz.ErrEmptyField):
		return a.SendText(chatID, msgAnswerEmpty)
	}

	n, err := quiz.ParseQuestionNumber(qstr)
	if err != nil {
		return a.SendText(chatID, msgQuestionNotNum)
	}

	var answer *models.Answer
	if teamName != "" {
		answer, err = a.svc.SubmitAnswer(ctx, teamName, n, text)
	} else {
		answer, err = a.svc.SubmitAnswerByChat(ctx, chatID, n, text)
	}
	if errors.Is(err, quiz.ErrTeamNotFound) {
		a.states.Clear(userID)
		return a.SendText(chatID, msgRegisterFirst)
	}
	if err != nil {
		a.logger.Error("save answer failed", zap.Int64("chat_id", chatID), zap.Error(err))
		a.states.Clear(userID)
		return a.SendText(chatID, msgAnswerFailed)
	}

	a.states.Clear(userID)
	return a.sendHTML(chatID, fmt.Sprintf(`✅ <b>Ответ принят!</b>

📌 Команда: <b>%s</b>
🔢 Вопрос: %d
✍️ Ответ: %s

Для отправки следующего ответа используйте /answer`,
		answer.TeamName, answer.QuestionNumber, answer.Text))
}

func (a *App) finishBroadcast(ctx context.Context, userID, chatID int64, txt string) error {
	msgText := strings.TrimSpace(txt)
	if msgText == "" {
		return a.SendText(chatID, "Текст пустой. Введите ещё раз:")
	}

	ids, err := a.svc.TeamChatIDs(ctx)
	if err != nil {
		a.logger.Error("broadcast: list teams failed", zap.Error(err))
		a.states.Clear(userID)
		return a.SendText(chatID, "❌ Ошибка при получении списка команд. Попробуйте позже.")
	}

	sent := 0
	for _, id := range ids {
		if err := a.limiter.Wait(ctx); err != nil {
			break
		}
		if err := a.SendText(id, "📢 Сообщение от организаторов: "+msgText); err != nil {
			a.logger.Warn("broadcast send failed", zap.Int64("chat_id", id), zap.Error(err))
			continue
		}
		sent++
	}

	a.states.Clear(userID)
	return a.SendText(chatID, fmt.Sprintf("✅ Рассылка выполнена: %d получателей.", sent))
}

func formatDate(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("02.01.2006 15:04")
}
