package tg

import (
	"github.com/pvzzle/posledger/internal/bus"
	"github.com/pvzzle/posledger/internal/render"
	"github.com/pvzzle/posledger/internal/storage"
	"github.com/pvzzle/posledger/internal/subs"

	"go.uber.org/zap"
)

// ConfirmationHook fans a confirmed record out to the interested chats.
// It never blocks: when out is full the notification is dropped.
func ConfirmationHook(subStore *subs.Store, out chan<- bus.Notification, log *zap.Logger) func(storage.PaymentRequest) {
	log = log.Named("tg")
	return func(rec storage.PaymentRequest) {
		recipients := subStore.Match(rec)
		subStore.Forget(rec.ID)
		if len(recipients) == 0 {
			return
		}

		text := render.FormatConfirmed(rec)
		for _, chatID := range recipients {
			select {
			case out <- bus.Notification{ChatID: chatID, Text: text}:
			default:
				log.Warn("notification dropped", zap.Int64("chat_id", chatID), zap.Int64("id", rec.ID))
			}
		}
	}
}
