package tgbot

import (
	"context"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"running-bot/internal/callback"
	"running-bot/internal/catalog"
	"running-bot/internal/config"
	"running-bot/internal/flow"
	"running-bot/internal/store"
)

type App struct {
	cfg config.Config
	bot *tgbotapi.BotAPI
	st  *store.Store
	cat *catalog.Adapter
	eng *flow.Engine
}

func New(cfg config.Config, st *store.Store, cat *catalog.Adapter) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	a := &App{
		cfg: cfg,
		bot: b,
		st:  st,
		cat: cat,
	}
	a.eng = flow.NewEngine(st, a)
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				if err := a.handleMessage(ctx, upd.Message); err != nil {
					log.Printf("handle msg: %v", err)
					a.reportFailure(upd.Message.From.ID)
				}
			} else if upd.CallbackQuery != nil {
				if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
					log.Printf("handle cb: %v", err)
					a.reportFailure(upd.CallbackQuery.From.ID)
				}
			}
		}
	}
}

// RunSweeper periodically drops coach proposals that sat unanswered
// longer than the configured TTL.
func (a *App) RunSweeper(ctx context.Context) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.eng.ExpireStale(a.cfg.ProposalTTL)
			if err != nil {
				log.Printf("expire proposals: %v", err)
			} else if n > 0 {
				log.Printf("expired %d stale proposals", n)
			}
		}
	}
}

// reportFailure tells the user a turn failed and drops their dialog so a
// retry starts clean. Retrying the same operation is safe: the store's
// upserts are idempotent.
func (a *App) reportFailure(tgID int64) {
	_ = a.st.ClearSession(tgID, tgID)
	_ = a.SendText(tgID, "⚠️ Что-то пошло не так. Нажми /start")
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

// Send implements flow.Notifier.
func (a *App) Send(userID int64, text string) error {
	return a.SendText(userID, text)
}

// SendProposal implements flow.Notifier: one message per proposed
// distance with accept/reject buttons carrying the decision tokens.
func (a *App) SendProposal(userID int64, text string, acceptToken, rejectToken string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Принять", acceptToken),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", rejectToken),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) isAdmin(tgID int64) bool {
	return a.cfg.AdminTGIDs[tgID]
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	tgID := m.From.ID
	txt := strings.TrimSpace(m.Text)

	if strings.HasPrefix(txt, "/start") {
		if err := a.st.ClearSession(tgID, tgID); err != nil {
			return err
		}
		return a.showMainMenu(tgID)
	}
	if strings.HasPrefix(txt, "/invite") {
		return a.handleInvite(tgID)
	}
	if strings.HasPrefix(txt, "/reload") {
		if !a.isAdmin(tgID) {
			return a.SendText(tgID, "Доступ запрещён.")
		}
		return a.handleReload(tgID)
	}
	if strings.HasPrefix(txt, "/join") {
		code := strings.TrimSpace(strings.TrimPrefix(txt, "/join"))
		return a.handleJoin(tgID, m.From.FirstName, code)
	}

	// flow-based input
	flowName, data, err := a.st.LoadSession(tgID, tgID)
	if err != nil {
		return err
	}
	if flowName != "" {
		return a.handleFlowInput(ctx, tgID, txt, flowName, data)
	}

	return a.showMainMenu(tgID)
}

func (a *App) handleFlowInput(ctx context.Context, tgID int64, txt, flowName string, data []byte) error {
	switch flowName {
	case flowRegistration:
		return a.handleTimeInput(tgID, txt, data)
	case flowFollowup:
		return a.handleFollowupInput(tgID, txt, data)
	case flowEditTime:
		return a.handleEditTimeInput(tgID, txt, data)
	default:
		if err := a.st.ClearSession(tgID, tgID); err != nil {
			return err
		}
		return a.SendText(tgID, "Сброс состояния. Нажми /start")
	}
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID
	data := q.Data

	// ack
	cb := tgbotapi.NewCallback(q.ID, "")
	_, _ = a.bot.Request(cb)

	if callback.IsDecision(data) {
		return a.handleDecision(tgID, data)
	}

	switch data {
	case "m:menu":
		return a.showMainMenu(tgID)
	case "m:comps":
		return a.showCompetitions(tgID)
	case "m:my":
		return a.showMyRegistrations(tgID)
	case "m:coach":
		return a.showCoachMenu(tgID)
	case "sel:confirm":
		return a.handleSelectorConfirm(q)
	case "sel:cancel":
		return a.handleSelectorCancel(tgID)
	case "tm:skip":
		return a.handleTimeSkip(tgID)
	case "tm:back":
		return a.handleTimeBack(q)
	case "ft:skip":
		return a.handleFollowupSkip(tgID)
	case "ft:cancel":
		return a.handleFollowupCancel(tgID)
	}

	switch {
	case strings.HasPrefix(data, "comp:view:"):
		id, err := callback.ParseID(data, "comp:view:")
		if err != nil {
			return a.SendText(tgID, "Некорректные данные. Нажми /start")
		}
		return a.showCompetitionCard(tgID, id)
	case strings.HasPrefix(data, "comp:reg:"):
		id, err := callback.ParseID(data, "comp:reg:")
		if err != nil {
			return a.SendText(tgID, "Некорректные данные. Нажми /start")
		}
		return a.startSelfRegistration(tgID, id)
	case strings.HasPrefix(data, "sel:toggle:"):
		return a.handleSelectorToggle(q)
	case strings.HasPrefix(data, "unreg:"):
		id, err := callback.ParseID(data, "unreg:")
		if err != nil {
			return a.SendText(tgID, "Некорректные данные. Нажми /start")
		}
		return a.handleUnregister(tgID, id)
	case strings.HasPrefix(data, "rt:edit:"):
		id, err := callback.ParseID(data, "rt:edit:")
		if err != nil {
			return a.SendText(tgID, "Некорректные данные. Нажми /start")
		}
		return a.startEditTime(tgID, id)
	case strings.HasPrefix(data, "coach:pick:"):
		id, err := callback.ParseID(data, "coach:pick:")
		if err != nil {
			return a.SendText(tgID, "Некорректные данные. Нажми /start")
		}
		return a.showCompetitionsForStudent(tgID, id)
	case strings.HasPrefix(data, "coach:comp:"):
		return a.startCoachProposal(tgID, data)
	case strings.HasPrefix(data, "a:export:"):
		if !a.isAdmin(tgID) {
			return a.SendText(tgID, "Доступ запрещён.")
		}
		id, err := callback.ParseID(data, "a:export:")
		if err != nil {
			return a.SendText(tgID, "Некорректные данные.")
		}
		return a.sendExportLink(tgID, id)
	}

	return nil
}
