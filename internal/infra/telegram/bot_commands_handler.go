package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"landten/internal/domain/money"
	"landten/internal/domain/payment"
	"landten/internal/domain/tenant"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const lookupTimeout = 10 * time.Second

var openStatuses = []payment.Status{
	payment.StatusUpcoming, payment.StatusPending, payment.StatusOverdue, payment.StatusVerifying,
}

// CommandHandlers answers the bot's slash commands. Tenants are recognised by the
// chat id their landlord linked to their profile.
type CommandHandlers struct {
	tenantRepo  tenant.Repository
	paymentRepo payment.Repository
	logger      *logrus.Entry
}

func NewCommandHandlers(tr tenant.Repository, pr payment.Repository, logger *logrus.Entry) *CommandHandlers {
	return &CommandHandlers{tenantRepo: tr, paymentRepo: pr, logger: logger}
}

// Register wires the commands into b.
func (h *CommandHandlers) Register(b *telebot.Bot) {
	b.Handle("/start", h.Start)
	b.Handle("/help", h.Help)
	b.Handle("/balance", h.Balance)
}

func (h *CommandHandlers) Start(c telebot.Context) error {
	chatID := c.Chat().ID
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "chat_id": chatID})
	logCtx.Info("Processing /start command")

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	t, err := h.tenantRepo.GetByTelegramChatID(ctx, chatID)
	switch {
	case err == nil:
		logCtx.WithField("tenant_id", t.ID).Info("Chat belongs to a tenant")
		return c.Send(fmt.Sprintf("Hello %s! You will get rent reminders here. Send /balance to see what is due.", t.Name))
	case errors.Is(err, tenant.ErrNotFound):
		return c.Send(fmt.Sprintf(
			"Hello! Your chat id is %d. Give it to your landlord, or enter it in your profile, to receive payment notifications here.",
			chatID))
	default:
		logCtx.WithError(err).Error("Error looking up tenant for /start")
		return c.Send("Something went wrong. Please try again later.")
	}
}

func (h *CommandHandlers) Help(c telebot.Context) error {
	var b strings.Builder
	b.WriteString("Available commands:\n\n")
	b.WriteString("/start - show your chat id\n")
	b.WriteString("/balance - list your open rent payments\n")
	b.WriteString("/help - show this message\n\n")
	fmt.Fprintf(&b, "Your chat id is %d.", c.Chat().ID)
	return c.Send(b.String())
}

func (h *CommandHandlers) Balance(c telebot.Context) error {
	chatID := c.Chat().ID
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/balance", "chat_id": chatID})

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	t, err := h.tenantRepo.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return c.Send("This chat is not linked to a tenant. Send /start to get your chat id.")
		}
		logCtx.WithError(err).Error("Error looking up tenant for /balance")
		return c.Send("Something went wrong. Please try again later.")
	}

	payments, err := h.paymentRepo.List(ctx, payment.Filter{TenantID: t.ID, Statuses: openStatuses})
	if err != nil {
		logCtx.WithError(err).Error("Error listing payments for /balance")
		return c.Send("Something went wrong. Please try again later.")
	}
	logCtx.WithFields(logrus.Fields{"tenant_id": t.ID, "open": len(payments)}).Info("Processed /balance command")
	return c.Send(formatBalance(payments))
}

func formatBalance(payments []*payment.Payment) string {
	if len(payments) == 0 {
		return "You have no open payments. 🎉"
	}
	var b strings.Builder
	b.WriteString("Open payments:\n")
	for _, p := range payments {
		fmt.Fprintf(&b, "• %s due %s (%s)\n",
			money.Format(p.AmountDue, p.Currency), p.DueDate.Format(time.DateOnly), strings.ReplaceAll(string(p.Status), "_", " "))
	}
	return strings.TrimRight(b.String(), "\n")
}
