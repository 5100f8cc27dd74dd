package tgbot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"running-bot/internal/callback"
	"running-bot/internal/flow"
	"running-bot/internal/models"
	"running-bot/internal/timefmt"
	"running-bot/internal/util"
)

const (
	flowRegistration = "reg"
	flowFollowup     = "followup"
	flowEditTime     = "edit_time"
)

// followupState points the accept-without-time dialog at its row.
type followupState struct {
	RegistrationID int64 `json:"registration_id"`
}

// ---------- Menus / Screens ----------

func (a *App) showMainMenu(tgID int64) error {
	msg := tgbotapi.NewMessage(tgID, "🏃 *Беговой дневник*\nВыбери раздел:")
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) showCompetitions(tgID int64) error {
	comps, err := a.st.ListCompetitions()
	if err != nil {
		return err
	}
	if len(comps) == 0 {
		return a.SendText(tgID, "Соревнований пока нет.")
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, c := range comps {
		title := c.Name
		if c.Date != "" {
			title += " · " + c.Date
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, "comp:view:"+strconv.FormatInt(c.ID, 10)),
		))
	}
	rows = append(rows, backRow())

	msg := tgbotapi.NewMessage(tgID, "🏁 Ближайшие соревнования:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) showCompetitionCard(tgID, compID int64) error {
	c, err := a.st.GetCompetition(compID)
	if err != nil {
		return err
	}
	if c == nil {
		return a.SendText(tgID, "Соревнование не найдено.")
	}

	text := fmt.Sprintf("🏁 *%s*", c.Name)
	if c.Date != "" {
		text += "\n📅 " + c.Date
	}
	if c.City != "" {
		text += "\n📍 " + c.City
	}
	if len(c.Distances) > 0 {
		names := make([]string, 0, len(c.Distances))
		for _, d := range c.Distances {
			names = append(names, flow.DescribeDistance(d))
		}
		text += "\nДистанции: " + strings.Join(names, ", ")
	}

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = "Markdown"
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏃 Зарегистрироваться", "comp:reg:"+strconv.FormatInt(c.ID, 10)),
		),
	}
	if a.isAdmin(tgID) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 CSV", "a:export:"+strconv.FormatInt(c.ID, 10)),
		))
	}
	rows = append(rows, backRow())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) showMyRegistrations(tgID int64) error {
	regs, err := a.st.ListUserRegistrations(tgID)
	if err != nil {
		return err
	}

	var visible []models.Registration
	for _, r := range regs {
		if !r.Pending() {
			visible = append(visible, r)
		}
	}
	if len(visible) == 0 {
		return a.SendText(tgID, "У тебя пока нет регистраций.")
	}

	text := "📋 Мои старты:"
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, r := range visible {
		c, err := a.st.GetCompetition(r.CompetitionID)
		if err != nil {
			return err
		}
		name := "?"
		if c != nil {
			name = c.Name
		}
		d := flow.DescribeDistance(models.Distance{Value: r.Distance, Label: r.DistanceLabel})
		line := fmt.Sprintf("\n• %s — %s", name, d)
		if r.TargetTime != nil {
			line += ", цель " + *r.TargetTime
		}
		text += line

		id := strconv.FormatInt(r.ID, 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱ Время: "+d, "rt:edit:"+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Сняться: "+d, "unreg:"+id),
		))
	}
	rows = append(rows, backRow())

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

// ---------- Self registration ----------

func (a *App) startSelfRegistration(tgID, compID int64) error {
	return a.startRegistration(flow.KindSelf, tgID, tgID, 0, compID)
}

func (a *App) startRegistration(kind string, chatID, actorID, coachID, compID int64) error {
	c, err := a.st.GetCompetition(compID)
	if err != nil {
		return err
	}
	if c == nil {
		return a.SendText(chatID, "Соревнование не найдено.")
	}
	existing, err := a.st.ListUserCompetitionRegistrations(actorID, compID)
	if err != nil {
		return err
	}

	s := flow.NewSession(kind, actorID, coachID, c, existing)
	if len(s.Distances) <= 1 {
		if !s.Bypass() {
			return a.SendText(chatID, "Регистрация на эту дистанцию уже есть.")
		}
		if err := a.saveRegSession(chatID, s); err != nil {
			return err
		}
		return a.promptTime(chatID, s)
	}

	if err := a.saveRegSession(chatID, s); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, "Выбери дистанции (🔒 — уже есть регистрация):")
	msg.ReplyMarkup = selectorKeyboard(s)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) handleSelectorToggle(q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID
	s, err := a.loadRegSession(tgID)
	if err != nil || s == nil {
		return a.sessionLost(tgID, err)
	}

	i, perr := callback.ParseIndex(q.Data, "sel:toggle:", len(s.Distances))
	if perr != nil {
		return a.SendText(tgID, "Некорректные данные. Нажми /start")
	}
	if locked := s.Toggle(i); locked {
		return a.SendText(tgID, "Эта дистанция уже закреплена за тобой 🔒")
	}
	if err := a.saveRegSession(tgID, s); err != nil {
		return err
	}

	// refresh the checkboxes in place
	if q.Message != nil {
		edit := tgbotapi.NewEditMessageReplyMarkup(q.Message.Chat.ID, q.Message.MessageID, selectorKeyboard(s))
		if _, err := a.bot.Request(edit); err != nil {
			log.Printf("edit selector: %v", err)
		}
	}
	return nil
}

func (a *App) handleSelectorConfirm(q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID
	s, err := a.loadRegSession(tgID)
	if err != nil || s == nil {
		return a.sessionLost(tgID, err)
	}

	if err := s.Confirm(); err != nil {
		if errors.Is(err, flow.ErrEmptySelection) {
			return a.SendText(tgID, "Выбери хотя бы одну дистанцию.")
		}
		return err
	}
	if err := a.saveRegSession(tgID, s); err != nil {
		return err
	}
	return a.promptTime(tgID, s)
}

func (a *App) handleSelectorCancel(tgID int64) error {
	if err := a.st.ClearSession(tgID, tgID); err != nil {
		return err
	}
	return a.SendText(tgID, "Регистрация отменена.")
}

// ---------- Target time negotiation ----------

func (a *App) promptTime(chatID int64, s *flow.Session) error {
	d, ok := s.Current()
	if !ok {
		return a.finalizeRegistration(chatID, s)
	}
	text := fmt.Sprintf("⏱ Целевое время для %s?\nФормат: 1:45:00 или 45:30. Можно пропустить.",
		flow.DescribeDistance(d))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = timeKeyboard()
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) handleTimeInput(tgID int64, txt string, data []byte) error {
	s, err := flow.UnmarshalSession(data)
	if err != nil {
		return a.sessionLost(tgID, err)
	}
	if err := s.EnterTime(txt); err != nil {
		if errors.Is(err, timefmt.ErrBadFormat) {
			return a.SendText(tgID, "Не понял время. Примеры: 1:45:00, 45:30, 19:58.5. Попробуй ещё раз:")
		}
		return err
	}
	if err := a.saveRegSession(tgID, s); err != nil {
		return err
	}
	return a.promptTime(tgID, s)
}

func (a *App) handleTimeSkip(tgID int64) error {
	s, err := a.loadRegSession(tgID)
	if err != nil || s == nil {
		return a.sessionLost(tgID, err)
	}
	s.Skip()
	if err := a.saveRegSession(tgID, s); err != nil {
		return err
	}
	return a.promptTime(tgID, s)
}

func (a *App) handleTimeBack(q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID
	s, err := a.loadRegSession(tgID)
	if err != nil || s == nil {
		return a.sessionLost(tgID, err)
	}
	if s.Back() {
		if err := a.saveRegSession(tgID, s); err != nil {
			return err
		}
		return a.promptTime(tgID, s)
	}
	// back from the first distance reopens the selector
	if err := a.saveRegSession(tgID, s); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tgID, "Выбери дистанции (🔒 — уже есть регистрация):")
	msg.ReplyMarkup = selectorKeyboard(s)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) finalizeRegistration(chatID int64, s *flow.Session) error {
	c, err := a.st.GetCompetition(s.CompetitionID)
	if err != nil {
		return err
	}
	if c == nil {
		return a.sessionLost(chatID, nil)
	}
	n, err := a.eng.Finalize(s, c)
	if err != nil {
		return err
	}
	if err := a.st.ClearSession(chatID, chatID); err != nil {
		return err
	}
	if s.Kind == flow.KindCoach {
		return a.SendText(chatID, fmt.Sprintf("📨 Отправлено предложений: %d. Спортсмен получит уведомления.", n))
	}
	return a.SendText(chatID, fmt.Sprintf("✅ Готово! Регистраций оформлено: %d.", n))
}

// ---------- Proposal decisions ----------

func (a *App) handleDecision(tgID int64, data string) error {
	d, err := callback.ParseDecision(data)
	if err != nil {
		log.Printf("bad decision token from %d: %v", tgID, err)
		return a.SendText(tgID, "Кнопка устарела или повреждена. Нажми /start")
	}

	if !d.Accept {
		_, err := a.eng.Reject(tgID, d)
		if errors.Is(err, flow.ErrProposalNotFound) {
			return a.SendText(tgID, "Предложение уже неактуально.")
		}
		if err != nil {
			return err
		}
		return a.SendText(tgID, "❌ Предложение отклонено.")
	}

	reg, needsTime, err := a.eng.Accept(tgID, d)
	if errors.Is(err, flow.ErrProposalNotFound) {
		return a.SendText(tgID, "Предложение уже неактуально.")
	}
	if err != nil {
		return err
	}
	if !needsTime {
		return a.SendText(tgID, "✅ Участие подтверждено, целевое время "+*reg.TargetTime)
	}

	// accepted without a time: open the follow-up dialog
	st := followupState{RegistrationID: reg.ID}
	raw, _ := json.Marshal(st)
	if err := a.st.SaveSession(tgID, tgID, flowFollowup, raw); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tgID, "✅ Участие подтверждено. Укажешь целевое время?\nВведи время или выбери вариант:")
	msg.ReplyMarkup = followupKeyboard()
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) handleFollowupInput(tgID int64, txt string, data []byte) error {
	var st followupState
	if err := json.Unmarshal(data, &st); err != nil {
		return a.sessionLost(tgID, err)
	}
	norm, err := a.eng.FollowupEnter(st.RegistrationID, txt)
	if errors.Is(err, timefmt.ErrBadFormat) {
		return a.SendText(tgID, "Не понял время. Примеры: 1:45:00, 45:30. Попробуй ещё раз:")
	}
	if errors.Is(err, flow.ErrProposalNotFound) {
		return a.sessionLost(tgID, nil)
	}
	if err != nil {
		return err
	}
	if err := a.st.ClearSession(tgID, tgID); err != nil {
		return err
	}
	return a.SendText(tgID, "⏱ Целевое время сохранено: "+norm)
}

func (a *App) handleFollowupSkip(tgID int64) error {
	// the registration is already accepted with no time; just close
	if err := a.st.ClearSession(tgID, tgID); err != nil {
		return err
	}
	return a.SendText(tgID, "Ок, без целевого времени. Его можно задать позже в «Мои старты».")
}

func (a *App) handleFollowupCancel(tgID int64) error {
	_, data, err := a.st.LoadSession(tgID, tgID)
	if err != nil {
		return err
	}
	var st followupState
	if err := json.Unmarshal(data, &st); err != nil {
		return a.sessionLost(tgID, err)
	}
	if err := a.eng.FollowupCancel(st.RegistrationID); err != nil {
		return err
	}
	if err := a.st.ClearSession(tgID, tgID); err != nil {
		return err
	}
	return a.SendText(tgID, "Регистрация отменена.")
}

// ---------- My registrations: edit / unregister ----------

func (a *App) startEditTime(tgID, regID int64) error {
	st := followupState{RegistrationID: regID}
	raw, _ := json.Marshal(st)
	if err := a.st.SaveSession(tgID, tgID, flowEditTime, raw); err != nil {
		return err
	}
	return a.SendText(tgID, "Введи новое целевое время (например 1:45:00):")
}

func (a *App) handleEditTimeInput(tgID int64, txt string, data []byte) error {
	var st followupState
	if err := json.Unmarshal(data, &st); err != nil {
		return a.sessionLost(tgID, err)
	}
	norm, err := timefmt.Normalize(txt)
	if err != nil {
		return a.SendText(tgID, "Не понял время. Примеры: 1:45:00, 45:30. Попробуй ещё раз:")
	}
	ok, err := a.st.UpdateTargetTime(st.RegistrationID, &norm)
	if err != nil {
		return err
	}
	if err := a.st.ClearSession(tgID, tgID); err != nil {
		return err
	}
	if !ok {
		return a.SendText(tgID, "Регистрация не найдена.")
	}
	return a.SendText(tgID, "⏱ Целевое время обновлено: "+norm)
}

func (a *App) handleUnregister(tgID, regID int64) error {
	regs, err := a.st.ListUserRegistrations(tgID)
	if err != nil {
		return err
	}
	for _, r := range regs {
		if r.ID == regID {
			if _, err := a.st.DeleteRegistrationByID(regID); err != nil {
				return err
			}
			return a.SendText(tgID, "🗑 Регистрация удалена.")
		}
	}
	return a.SendText(tgID, "Регистрация не найдена.")
}

// ---------- Coach cabinet ----------

func (a *App) showCoachMenu(tgID int64) error {
	students, err := a.st.ListStudents(tgID)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		return a.SendText(tgID, "У тебя пока нет спортсменов. Отправь им код: /invite")
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, s := range students {
		name := s.Name
		if name == "" {
			name = strconv.FormatInt(s.TgID, 10)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 "+name, "coach:pick:"+strconv.FormatInt(s.TgID, 10)),
		))
	}
	rows = append(rows, backRow())

	msg := tgbotapi.NewMessage(tgID, "👨‍🏫 Твои спортсмены:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) showCompetitionsForStudent(tgID, studentID int64) error {
	ok, err := a.st.CanCoachAccessStudent(tgID, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return a.SendText(tgID, "Этот спортсмен не в твоём списке.")
	}

	comps, err := a.st.ListCompetitions()
	if err != nil {
		return err
	}
	if len(comps) == 0 {
		return a.SendText(tgID, "Соревнований пока нет.")
	}

	sid := strconv.FormatInt(studentID, 10)
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, c := range comps {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, "coach:comp:"+sid+":"+strconv.FormatInt(c.ID, 10)),
		))
	}
	rows = append(rows, backRow())

	msg := tgbotapi.NewMessage(tgID, "Выбери соревнование для предложения:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) startCoachProposal(tgID int64, data string) error {
	rest := strings.TrimPrefix(data, "coach:comp:")
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return a.SendText(tgID, "Некорректные данные. Нажми /start")
	}
	studentID, err1 := strconv.ParseInt(parts[0], 10, 64)
	compID, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || studentID <= 0 || compID <= 0 {
		return a.SendText(tgID, "Некорректные данные. Нажми /start")
	}

	ok, err := a.st.CanCoachAccessStudent(tgID, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return a.SendText(tgID, "Этот спортсмен не в твоём списке.")
	}
	return a.startRegistration(flow.KindCoach, tgID, studentID, tgID, compID)
}

func (a *App) handleInvite(tgID int64) error {
	code := util.NewInviteCode()
	if err := a.st.CreateInvite(code, tgID); err != nil {
		return err
	}
	return a.SendText(tgID, "Код для спортсменов: "+code+"\nПусть отправят боту: /join "+code)
}

func (a *App) handleJoin(tgID int64, name, code string) error {
	if code == "" {
		return a.SendText(tgID, "Укажи код: /join <код>")
	}
	coachID, err := a.st.ResolveInvite(code)
	if err != nil {
		return err
	}
	if coachID == 0 {
		return a.SendText(tgID, "Код не найден.")
	}
	if coachID == tgID {
		return a.SendText(tgID, "Нельзя стать своим же спортсменом.")
	}
	if err := a.st.LinkStudent(coachID, tgID, name); err != nil {
		return err
	}
	if err := a.Send(coachID, "👤 Новый спортсмен присоединился: "+name); err != nil {
		log.Printf("notify coach %d: %v", coachID, err)
	}
	return a.SendText(tgID, "✅ Ты привязан к тренеру. Жди предложений!")
}

func (a *App) handleReload(tgID int64) error {
	if a.cfg.CompetitionsFile == "" {
		return a.SendText(tgID, "COMPETITIONS_FILE не настроен.")
	}
	n, err := a.cat.ImportFile(a.cfg.CompetitionsFile)
	if err != nil {
		return err
	}
	return a.SendText(tgID, fmt.Sprintf("✅ Файл соревнований обработан: %d записей.", n))
}

// ---------- Session helpers ----------

func (a *App) loadRegSession(tgID int64) (*flow.Session, error) {
	flowName, data, err := a.st.LoadSession(tgID, tgID)
	if err != nil {
		return nil, err
	}
	if flowName != flowRegistration {
		return nil, nil
	}
	return flow.UnmarshalSession(data)
}

func (a *App) saveRegSession(tgID int64, s *flow.Session) error {
	return a.st.SaveSession(tgID, tgID, flowRegistration, s.Marshal())
}

func (a *App) sessionLost(tgID int64, err error) error {
	if err != nil {
		log.Printf("session for %d: %v", tgID, err)
	}
	_ = a.st.ClearSession(tgID, tgID)
	return a.SendText(tgID, "Диалог прерван. Нажми /start")
}

// ---------- CSV export ----------

func (a *App) sendExportLink(tgID, compID int64) error {
	id := strconv.FormatInt(compID, 10)
	token := util.HMACSHA256Hex(a.cfg.ExportSecret, "export:"+id)
	url := a.cfg.BasePublicURL + "/export/competition.csv?competition_id=" + id + "&token=" + token
	if a.cfg.BasePublicURL == "" {
		url = "http://localhost" + a.cfg.HTTPAddr + "/export/competition.csv?competition_id=" + id + "&token=" + token
	}
	return a.SendText(tgID, "📤 CSV выгрузка (ссылка): "+url)
}

// BuildCompetitionCSV renders every row of a competition, pending
// proposals included, for the admin export endpoint.
func (a *App) BuildCompetitionCSV(compID int64) (string, error) {
	regs, err := a.st.ListCompetitionRegistrations(compID)
	if err != nil {
		return "", err
	}

	b := strings.Builder{}
	b.WriteString("user_id,distance,distance_label,target_time,status,proposal_status,proposed_by\n")
	for _, r := range regs {
		target := ""
		if r.TargetTime != nil {
			target = *r.TargetTime
		}
		proposal := ""
		if r.ProposalStatus != nil {
			proposal = *r.ProposalStatus
		}
		proposedBy := ""
		if r.ProposedBy != nil {
			proposedBy = strconv.FormatInt(*r.ProposedBy, 10)
		}
		line := fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s\n",
			r.UserID,
			util.FormatKm(r.Distance),
			escapeCSV(r.DistanceLabel),
			escapeCSV(target),
			escapeCSV(r.Status),
			escapeCSV(proposal),
			proposedBy,
		)
		b.WriteString(line)
	}
	return b.String(), nil
}

func escapeCSV(s string) string {
	s = strings.ReplaceAll(s, `"`, `""`)
	if strings.ContainsAny(s, ",\n\r") {
		return `"` + s + `"`
	}
	return s
}
