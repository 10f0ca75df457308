package tg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/bus"
	"github.com/pvzzle/posledger/internal/render"
	"github.com/pvzzle/posledger/internal/storage"
	"github.com/pvzzle/posledger/internal/subs"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	cbNewRequest = "new_request"
	cbRequests   = "requests"
	cbSubscribe  = "subscribe"

	cbMySubs     = "my_subs"
	cbUnsubMin   = "unsub_min"
	cbUnsubAll   = "unsub_all"
	cbBackToMain = "back_main"

	historyLimit = 10
)

// Ledger is the part of the payments service the bot uses.
type Ledger interface {
	Create(ctx context.Context, lovelace int64) (storage.PaymentRequest, error)
	List(ctx context.Context) ([]storage.PaymentRequest, error)
	Get(ctx context.Context, id int64) (storage.PaymentRequest, error)
	Confirm(ctx context.Context, id int64, txHash, source string) (storage.PaymentRequest, error)
	PaymentURI(rec storage.PaymentRequest) string
}

type Service struct {
	bot    *tgbot.Bot
	ledger Ledger
	log    *zap.Logger

	subStore *subs.Store
	notifyCh <-chan bus.Notification

	state *StateStore
}

func NewService(
	b *tgbot.Bot,
	ledger Ledger,
	subStore *subs.Store,
	notifyCh <-chan bus.Notification,
	log *zap.Logger,
) *Service {
	s := &Service{
		bot:      b,
		ledger:   ledger,
		log:      log.Named("tg"),
		subStore: subStore,
		notifyCh: notifyCh,
		state:    NewStateStore(),
	}
	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	s.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, s.onStart)
	s.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/confirm", tgbot.MatchTypePrefix, s.onConfirm)

	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbNewRequest, tgbot.MatchTypeExact, s.onCbNewRequest)
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbRequests, tgbot.MatchTypeExact, s.onCbRequests)
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbSubscribe, tgbot.MatchTypeExact, s.onCbSubscribe)

	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbMySubs, tgbot.MatchTypeExact, s.onCbMySubs)
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbUnsubMin, tgbot.MatchTypeExact, s.onCbUnsubMin)
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbUnsubAll, tgbot.MatchTypeExact, s.onCbUnsubAll)
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbBackToMain, tgbot.MatchTypeExact, s.onCbBackToMain)

	s.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypePrefix, s.onAnyText)
}

// Start runs the bot and the notification loop until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	go s.StartNotifyLoop(ctx)
	s.bot.Start(ctx)
	return ctx.Err()
}

func (s *Service) StartNotifyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.notifyCh:
			_, err := s.bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: n.ChatID,
				Text:   n.Text,
			})
			if err != nil {
				s.log.Warn("send notify", zap.Int64("chat_id", n.ChatID), zap.Error(err))
			}
		}
	}
}

func mainMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "New request", CallbackData: cbNewRequest},
				{Text: "Requests", CallbackData: cbRequests},
			},
			{
				{Text: "Subscribe", CallbackData: cbSubscribe},
				{Text: "My subscriptions", CallbackData: cbMySubs},
			},
		},
	}
}

func backMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Back", CallbackData: cbBackToMain}},
		},
	}
}

func (s *Service) onStart(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	s.state.Set(chatID, StateIdle)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        "Hi! I create ADA payment requests and tell you when they are paid.\n\nChoose an action:",
		ReplyMarkup: mainMenu(),
	})
}

// callbackChat answers the callback and returns its chat, or false when the
// message is no longer accessible.
func (s *Service) callbackChat(ctx context.Context, b *tgbot.Bot, upd *models.Update) (int64, bool) {
	cb := upd.CallbackQuery
	if cb == nil || cb.Message.Type == models.MaybeInaccessibleMessageTypeInaccessibleMessage {
		return 0, false
	}
	_ = s.answerCallback(ctx, b, cb.ID)
	return cb.Message.Message.Chat.ID, true
}

func (s *Service) onCbNewRequest(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.state.Set(chatID, StateAwaitAmount)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   "Enter the amount in ADA (> 0), for example: 1.5",
	})
}

func (s *Service) onCbRequests(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.state.Set(chatID, StateIdle)

	items, err := s.ledger.List(ctx)
	if err != nil {
		s.log.Warn("list requests", zap.Error(err))
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:      chatID,
			Text:        render.ErrorText,
			ReplyMarkup: backMenu(),
		})
		return
	}

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        render.FormatRequests(items, historyLimit),
		ReplyMarkup: backMenu(),
	})
}

func (s *Service) onCbSubscribe(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.state.Set(chatID, StateAwaitMinAmount)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   "Notify about payments of at least how many ADA? Send 0 for every payment.",
	})
}

func (s *Service) onAnyText(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	if strings.HasPrefix(text, "/") {
		return
	}

	switch s.state.Get(chatID) {
	case StateAwaitAmount:
		s.handleCreate(ctx, b, chatID, text)

	case StateAwaitMinAmount:
		s.handleSetMin(ctx, b, chatID, text)

	default:
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   "Use /start to open the menu.",
		})
	}
}

func (s *Service) handleCreate(ctx context.Context, b *tgbot.Bot, chatID int64, amountStr string) {
	lovelace, err := amount.ParseAda(amountStr)
	if err != nil {
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   "Need a number > 0 (for example 0.5 or 10). Try again.",
		})
		return
	}
	s.state.Set(chatID, StateIdle)

	rec, err := s.ledger.Create(ctx, lovelace)
	if err != nil {
		s.log.Error("create request", zap.Int64("chat_id", chatID), zap.Error(err))
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   "Could not create the request, please try later.",
		})
		return
	}
	done, confirmed := s.track(ctx, chatID, rec)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        render.FormatCreated(rec, s.ledger.PaymentURI(rec)),
		ReplyMarkup: mainMenu(),
	})
	if confirmed {
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   render.FormatConfirmed(done),
		})
	}
}

// track subscribes chatID to rec. The submission may already have
// confirmed rec, in which case the confirmed record is returned instead.
func (s *Service) track(ctx context.Context, chatID int64, rec storage.PaymentRequest) (storage.PaymentRequest, bool) {
	if s.subStore.Track(chatID, rec.ID) {
		return storage.PaymentRequest{}, false
	}
	done, err := s.ledger.Get(ctx, rec.ID)
	if err != nil {
		s.log.Error("load confirmed request", zap.Int64("id", rec.ID), zap.Error(err))
		return storage.PaymentRequest{}, false
	}
	return done, done.Confirmed()
}

func (s *Service) handleSetMin(ctx context.Context, b *tgbot.Bot, chatID int64, amountStr string) {
	lovelace, err := ParseMinAmount(amountStr)
	if err != nil {
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   "Need 0 or a number > 0 (for example 0.5 or 10). Try again.",
		})
		return
	}

	s.subStore.SetMinAmount(chatID, lovelace)
	s.state.Set(chatID, StateIdle)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Ok! " + describeMin(lovelace),
	})
}

func (s *Service) onConfirm(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID

	id, hash, err := ParseConfirmCommand(upd.Message.Text)
	if err != nil {
		_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: err.Error()})
		return
	}

	rec, err := s.ledger.Confirm(ctx, id, hash, "telegram")
	var text string
	switch {
	case errors.Is(err, storage.ErrNotFound):
		text = fmt.Sprintf("Request #%d not found.", id)
	case err != nil:
		s.log.Error("confirm request", zap.Int64("id", id), zap.Error(err))
		text = "Could not confirm the request, please try later."
	case rec.TxHash != hash:
		text = fmt.Sprintf("Request #%d was already confirmed with %s.", id, render.ShortenHash(rec.TxHash))
	default:
		text = fmt.Sprintf("✅ Request #%d confirmed.", id)
	}
	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
}

func (s *Service) answerCallback(ctx context.Context, b *tgbot.Bot, callbackID string) error {
	_, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	return err
}

func (s *Service) onCbMySubs(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.state.Set(chatID, StateIdle)

	s.sendMySubs(ctx, b, chatID)
}

func (s *Service) onCbUnsubMin(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.subStore.ClearMinAmount(chatID)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Amount subscription removed.",
	})
	s.sendMySubs(ctx, b, chatID)
}

func (s *Service) onCbUnsubAll(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.subStore.ClearAll(chatID)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ All subscriptions removed.",
	})
	s.sendMySubs(ctx, b, chatID)
}

func (s *Service) onCbBackToMain(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	chatID, ok := s.callbackChat(ctx, b, upd)
	if !ok {
		return
	}
	s.state.Set(chatID, StateIdle)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        "Main menu:",
		ReplyMarkup: mainMenu(),
	})
}

func (s *Service) sendMySubs(ctx context.Context, b *tgbot.Bot, chatID int64) {
	u, ok := s.subStore.GetCopy(chatID)

	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   FormatSubs(u, ok),
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "Remove: amount", CallbackData: cbUnsubMin}},
				{{Text: "Remove all", CallbackData: cbUnsubAll}},
				{{Text: "Back", CallbackData: cbBackToMain}},
			},
		},
	})
}

// FormatSubs describes a chat's subscriptions.
func FormatSubs(u subs.ChatSubs, ok bool) string {
	lines := []string{"📌 Your subscriptions:"}

	if !ok || (u.MinLovelace == nil && len(u.Requests) == 0) {
		return strings.Join(append(lines, "- none"), "\n")
	}
	if u.MinLovelace != nil {
		lines = append(lines, "- "+describeMin(*u.MinLovelace))
	} else {
		lines = append(lines, "- Amount: (none)")
	}
	lines = append(lines, fmt.Sprintf("- Own requests awaiting payment: %d", len(u.Requests)))
	return strings.Join(lines, "\n")
}

func describeMin(lovelace int64) string {
	if lovelace == 0 {
		return "Notifying about every confirmed payment."
	}
	return fmt.Sprintf("Notifying about payments >= %s ADA.", amount.FormatAda(lovelace, 2))
}
