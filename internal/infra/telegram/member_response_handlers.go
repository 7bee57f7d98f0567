// internal/infra/telegram/member_response_handlers.go
package telegram

import (
	"context"
	"fmt"

	"household_schedule_bot/internal/app"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterMemberResponseHandlers wires the inline Done button sent with chore notices.
func RegisterMemberResponseHandlers(ctx context.Context, b *telebot.Bot, processing *app.ProcessingService, baseLogger *logrus.Entry) {
	doneLogger := baseLogger.WithField("handler", "done_button")

	b.Handle(&telebot.Btn{Unique: app.DoneButtonUnique}, func(c telebot.Context) error {
		data := c.Callback().Data
		logCtx := doneLogger.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "data": data})

		occurrenceID, err := uuid.Parse(data)
		if err != nil {
			c.Bot().OnError(fmt.Errorf("invalid occurrence id %q in done callback: %w", data, err), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Could not read this button."})
		}

		occ, err := processing.CompleteOccurrence(ctx, occurrenceID, c.Sender().ID)
		if err != nil {
			text, unexpected := errorReply(err)
			if unexpected {
				c.Bot().OnError(fmt.Errorf("error completing occurrence %s: %w", occurrenceID, err), c)
			} else {
				logCtx.WithError(err).Warn("Done rejected")
			}
			return c.Respond(&telebot.CallbackResponse{Text: text})
		}

		logCtx.WithField("occurrence_id", occ.ID).Info("Chore completed from button")
		if msg := c.Message(); msg != nil {
			// Editing without markup drops the button.
			if err := c.Edit(msg.Text + "\n\nDone, thanks!"); err != nil {
				logCtx.WithError(err).Warn("Failed to edit chore message")
			}
		}
		return c.Respond(&telebot.CallbackResponse{Text: "Marked as done!"})
	})
}
