package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender часть *tgbotapi.BotAPI, нужная для отправки
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramConfig способ выдачи доступа и данные для текстов
type TelegramConfig struct {
	// GroupInviteLink постоянная ссылка; имеет приоритет над GroupChatID
	GroupInviteLink string
	// GroupChatID группа, в которой создается одноразовая ссылка
	GroupChatID int64
	InviteTTL   time.Duration
	PriceCents  int
	PeriodDays  int
}

// TelegramNotifier отправляет покупателю доступ и напоминание о продлении
type TelegramNotifier struct {
	sender Sender
	cfg    TelegramConfig
	now    func() time.Time
	log    *logger.Logger
}

// NewTelegramNotifier создает уведомитель поверх бота
func NewTelegramNotifier(sender Sender, cfg TelegramConfig, log *logger.Logger) *TelegramNotifier {
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 30 * time.Minute
	}
	return &TelegramNotifier{
		sender: sender,
		cfg:    cfg,
		now:    time.Now,
		log:    log.Named("telegram"),
	}
}

// AccessGranted выдает ссылку на группу: постоянную, одноразовую или сообщает, что доступ не настроен
func (n *TelegramNotifier) AccessGranted(ctx context.Context, subscriberID int64, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var text string
	switch {
	case n.cfg.GroupInviteLink != "":
		text = accessWithLinkMessage(n.cfg.GroupInviteLink, expiresAt)
	case n.cfg.GroupChatID != 0:
		link, err := n.createInviteLink()
		if err != nil {
			return fmt.Errorf("access delivery for %d: %w", subscriberID, err)
		}
		text = accessWithInviteMessage(link, n.cfg.InviteTTL, expiresAt)
	default:
		n.log.Warn("Neither GROUP_INVITE_LINK nor GROUP_CHAT_ID is configured")
		text = accessNotConfiguredMessage
	}

	if _, err := n.sender.Send(tgbotapi.NewMessage(subscriberID, text)); err != nil {
		return fmt.Errorf("access delivery for %d: %w", subscriberID, err)
	}
	n.log.Info("Access delivered to %d", subscriberID)
	return nil
}

// RenewalDue сообщает об истечении и цене продления
func (n *TelegramNotifier) RenewalDue(ctx context.Context, subscriberID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(subscriberID, renewalMessage(n.cfg.PriceCents, n.cfg.PeriodDays))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("renewal prompt for %d: %w", subscriberID, err)
	}
	return nil
}

// createInviteLink одноразовая ссылка: один участник, ограниченный срок
func (n *TelegramNotifier) createInviteLink() (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: n.cfg.GroupChatID},
		ExpireDate:  int(n.now().Add(n.cfg.InviteTTL).Unix()),
		MemberLimit: 1,
	}
	resp, err := n.sender.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}

	var invite tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &invite); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if invite.InviteLink == "" {
		return "", fmt.Errorf("create invite link: empty link in response")
	}
	return invite.InviteLink, nil
}
