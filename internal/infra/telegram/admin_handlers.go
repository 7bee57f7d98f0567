package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"household_schedule_bot/internal/app"
	"household_schedule_bot/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const defaultUpcomingDays = 30

type adminHandlers struct {
	ctx             context.Context
	adminService    *app.AdminService
	adminTelegramID int64
	baseLogger      *logrus.Entry
}

// RegisterAdminHandlers registers handlers for admin commands.
// It requires the bot instance, admin service, and the configured admin Telegram ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	h := &adminHandlers{ctx: ctx, adminService: adminService, adminTelegramID: adminTelegramID, baseLogger: baseLogger}

	b.Handle("/add_member", h.guard("/add_member", h.addMember))
	b.Handle("/remove_member", h.guard("/remove_member", h.removeMember))
	b.Handle("/list_members", h.guard("/list_members", h.listMembers))
	b.Handle("/add_schedule", h.guard("/add_schedule", h.addSchedule))
	b.Handle("/reconfigure", h.guard("/reconfigure", h.reconfigure))
	b.Handle("/schedules", h.guard("/schedules", h.listSchedules))
	b.Handle("/pause", h.guard("/pause", h.stateChange("/pause", "paused", adminService.PauseSchedule)))
	b.Handle("/resume", h.guard("/resume", h.stateChange("/resume", "resumed", adminService.ResumeSchedule)))
	b.Handle("/activate", h.guard("/activate", h.stateChange("/activate", "activated", adminService.ActivateSchedule)))
	b.Handle("/deactivate", h.guard("/deactivate", h.stateChange("/deactivate", "deactivated", adminService.DeactivateSchedule)))
	b.Handle("/upcoming", h.guard("/upcoming", h.upcoming))
}

type adminHandlerFunc func(c telebot.Context, log *logrus.Entry) error

// guard logs the command and rejects senders other than the admin before
// the handler runs.
func (h *adminHandlers) guard(command string, fn adminHandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		handlerLogger := h.baseLogger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != h.adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}
		return fn(c, handlerLogger)
	}
}

// fail replies with the user-facing text for err.
func (h *adminHandlers) fail(c telebot.Context, log *logrus.Entry, err error) error {
	text, unexpected := errorReply(err)
	if unexpected {
		log.WithError(err).Error("Command failed")
	} else {
		log.WithError(err).Warn("Command rejected")
	}
	return c.Send(text)
}

func (h *adminHandlers) addMember(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	// Expected format: /add_member <TelegramID> <FirstName> [LastName]
	if len(args) < 2 || len(args) > 3 {
		log.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Send("Invalid format. Use: /add_member <TelegramID> <FirstName> [LastName]")
	}

	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Error: Telegram ID must be a number.")
	}
	var lastName string
	if len(args) == 3 {
		lastName = args[2]
	}

	log = log.WithField("member_telegram_id", telegramID)
	m, err := h.adminService.AddMember(h.ctx, c.Sender().ID, telegramID, strings.TrimSpace(args[1]), lastName)
	if err != nil {
		return h.fail(c, log, err)
	}

	log.WithField("member_id", m.ID).Info("Member added successfully")
	return c.Send(fmt.Sprintf("Member %s (ID: %d) added.", m.DisplayName(), m.TelegramID))
}

func (h *adminHandlers) removeMember(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	// Expected format: /remove_member <TelegramID>
	if len(args) != 1 {
		return c.Send("Invalid format. Use: /remove_member <TelegramID>")
	}

	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		log.WithField("arg", args[0]).Warn("Invalid Telegram ID format")
		return c.Send("Error: Telegram ID must be a number.")
	}

	log = log.WithField("member_telegram_id", telegramID)
	m, err := h.adminService.RemoveMember(h.ctx, c.Sender().ID, telegramID)
	if err != nil {
		return h.fail(c, log, err)
	}

	log.WithField("member_id", m.ID).Info("Member removed (deactivated) successfully")
	return c.Send(fmt.Sprintf("Member %s (ID: %d) removed. Their assignments are no longer used.", m.DisplayName(), m.TelegramID))
}

func (h *adminHandlers) listMembers(c telebot.Context, log *logrus.Entry) error {
	// Optional argument: 'active' or 'all'
	listType := "active"
	if args := c.Args(); len(args) > 0 {
		listType = strings.ToLower(args[0])
	}
	if listType != "active" && listType != "all" {
		return c.Send("Invalid argument. Use 'active' or 'all', or leave it empty for active members.")
	}

	members, err := h.adminService.ListMembers(h.ctx, c.Sender().ID, listType == "active")
	if err != nil {
		return h.fail(c, log, err)
	}
	if len(members) == 0 {
		return c.Send("No members found.")
	}

	log.WithField("members_count", len(members)).Info("Successfully retrieved member list")
	lines := make([]string, 0, len(members)+1)
	lines = append(lines, fmt.Sprintf("Members (%s):", listType))
	for _, m := range members {
		lines = append(lines, formatMember(m))
	}
	return c.Send(strings.Join(lines, "\n"))
}

func (h *adminHandlers) addSchedule(c telebot.Context, log *logrus.Entry) error {
	input, err := ParseAddScheduleArgs(c.Args())
	if err != nil {
		return h.fail(c, log, err)
	}

	sch, err := h.adminService.CreateSchedule(h.ctx, c.Sender().ID, input)
	if err != nil {
		return h.fail(c, log, err)
	}

	log.WithField("schedule_id", sch.ID).Info("Schedule created successfully")
	return c.Send("Schedule created:\n" + FormatSchedule(sch))
}

func (h *adminHandlers) reconfigure(c telebot.Context, log *logrus.Entry) error {
	rawID, input, err := ParseReconfigureArgs(c.Args())
	if err != nil {
		return h.fail(c, log, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return c.Send("Error: schedule ID must be a UUID.")
	}

	log = log.WithField("schedule_id", id)
	sch, err := h.adminService.ReconfigureSchedule(h.ctx, c.Sender().ID, id, input)
	if err != nil {
		return h.fail(c, log, err)
	}

	log.WithField("superseded_by", sch.ID).Info("Schedule reconfigured successfully")
	return c.Send("Schedule replaced by:\n" + FormatSchedule(sch))
}

func (h *adminHandlers) listSchedules(c telebot.Context, log *logrus.Entry) error {
	schedules, err := h.adminService.ListSchedules(h.ctx, c.Sender().ID)
	if err != nil {
		return h.fail(c, log, err)
	}
	if len(schedules) == 0 {
		return c.Send("No schedules yet. Create one with /add_schedule.")
	}

	lines := make([]string, len(schedules))
	for i, sch := range schedules {
		lines[i] = FormatSchedule(sch)
	}
	return c.Send(strings.Join(lines, "\n"))
}

func (h *adminHandlers) stateChange(command, action string, change func(context.Context, int64, uuid.UUID) (*schedule.Schedule, error)) adminHandlerFunc {
	return func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send(fmt.Sprintf("Invalid format. Use: %s <scheduleID>", command))
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return c.Send("Error: schedule ID must be a UUID.")
		}

		log = log.WithField("schedule_id", id)
		sch, err := change(h.ctx, c.Sender().ID, id)
		if err != nil {
			return h.fail(c, log, err)
		}

		log.Infof("Schedule %s successfully", action)
		return c.Send(fmt.Sprintf("Schedule %s:\n%s", action, FormatSchedule(sch)))
	}
}

func (h *adminHandlers) upcoming(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	// Expected format: /upcoming <scheduleID> [days]
	if len(args) < 1 || len(args) > 2 {
		return c.Send("Invalid format. Use: /upcoming <scheduleID> [days]")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return c.Send("Error: schedule ID must be a UUID.")
	}
	days := defaultUpcomingDays
	if len(args) == 2 {
		if days, err = strconv.Atoi(args[1]); err != nil {
			return c.Send("Error: days must be a number.")
		}
	}

	dates, err := h.adminService.UpcomingForSchedule(h.ctx, c.Sender().ID, id, days)
	if err != nil {
		return h.fail(c, log.WithField("schedule_id", id), err)
	}
	return c.Send(fmt.Sprintf("Next %d days:\n%s", days, FormatDates(dates)))
}
