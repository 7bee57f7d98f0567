// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"household_schedule_bot/internal/app"
	"household_schedule_bot/internal/domain/member"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgStatusCheckFailed = "Something went wrong while checking your status. Please try again later."
	msgUnknownUser       = "Hi! I keep track of household allowances and chores. If you live here, ask the admin to add you."
	msgInactiveMember    = "Your household account is inactive. Please contact the admin."
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	memberRepo member.Repository,
	processing *app.ProcessingService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hi %s! I'm ready. Use /help for the list of admin commands.", c.Sender().FirstName))
		}

		m, err := memberRepo.GetByTelegramID(ctx, senderID)
		switch {
		case errors.Is(err, member.ErrNotFound):
			logCtx.Info("User is unknown")
			return c.Send(msgUnknownUser)
		case err != nil:
			logCtx.WithError(err).Error("Error checking member status for /start command")
			return c.Send(msgStatusCheckFailed)
		case !m.IsActive:
			logCtx.WithField("member_id", m.ID).Info("User identified as inactive member")
			return c.Send(msgInactiveMember)
		}

		logCtx.WithField("member_id", m.ID).Info("User identified as active member")
		return c.Send(fmt.Sprintf("Hi %s! I'll message you when an allowance is paid or a chore is due.", m.FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin, sending admin help.")
			return c.Send(adminHelp())
		}

		m, err := memberRepo.GetByTelegramID(ctx, senderID)
		switch {
		case errors.Is(err, member.ErrNotFound):
			logCtx.Info("User is unknown, sending restricted help.")
			return c.Send("There are no commands for you yet. " + msgUnknownUser)
		case err != nil:
			logCtx.WithError(err).Error("Error checking member status for /help command")
			return c.Send(msgStatusCheckFailed)
		case !m.IsActive:
			return c.Send(msgInactiveMember)
		}

		logCtx.WithField("member_id", m.ID).Info("User identified as active member, sending member help.")
		return c.Send("I'll tell you when your allowance is paid and remind you of chores on the day they are due. " +
			"Tap Done under a chore message once it's finished.\n\n" +
			"/my_chores - list your pending chores\n" +
			"/help - show this message")
	})

	b.Handle("/my_chores", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/my_chores").WithField("sender_id", senderID)

		pending, err := processing.PendingForMember(ctx, senderID)
		if err != nil {
			text, unexpected := errorReply(err)
			if unexpected {
				logCtx.WithError(err).Error("Failed to list pending chores")
			}
			return c.Send(text)
		}
		logCtx.WithField("pending_count", len(pending)).Info("Listed pending chores")
		return c.Send(formatPending(pending))
	})
}

func adminHelp() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("/add_member <TelegramID> <FirstName> [LastName]\n - Add a household member or reactivate a removed one.\n\n")
	helpText.WriteString("/remove_member <TelegramID>\n - Deactivate a member; they drop out of every rotation.\n\n")
	helpText.WriteString("/list_members [active|all]\n - Show members. Defaults to active ones.\n\n")
	helpText.WriteString(addScheduleUsage + "\n - Create an allowance or chore schedule.\n\n")
	helpText.WriteString(reconfigureUsage + "\n - Replace a schedule with a new configuration.\n\n")
	helpText.WriteString("/schedules\n - List every schedule.\n\n")
	helpText.WriteString("/pause, /resume, /activate, /deactivate <scheduleID>\n - Change a schedule's state.\n\n")
	helpText.WriteString("/upcoming <scheduleID> [days]\n - Preview upcoming dates (default 30 days).\n\n")
	helpText.WriteString("/help\n - Show this message.")
	return helpText.String()
}
