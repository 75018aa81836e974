// Package bot диалог с покупателем в Telegram: long polling, команды и кнопки.
package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/notify"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeoutSeconds = 30

// UpdateSource источник обновлений; *tgbotapi.BotAPI реализует его
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Checkout создание Pix-платежа для покупателя
type Checkout interface {
	CreateCharge(ctx context.Context, subscriberID int64) (*domain.ChargeOffer, error)
}

// SubscriptionReader статус подписки
type SubscriptionReader interface {
	Get(ctx context.Context, subscriberID int64) (domain.Subscriber, error)
}

// Config данные для текстов бота
type Config struct {
	PriceCents int
	PeriodDays int
}

// Bot обрабатывает /start, /status и кнопки pay и status.
// Покупатель определяется по Telegram user id.
type Bot struct {
	source        UpdateSource
	sender        notify.Sender
	checkout      Checkout
	subscriptions SubscriptionReader
	cfg           Config
	log           *logger.Logger
	wg            sync.WaitGroup
}

// New создает бота
func New(source UpdateSource, sender notify.Sender, checkout Checkout, subscriptions SubscriptionReader, cfg Config, log *logger.Logger) *Bot {
	return &Bot{
		source:        source,
		sender:        sender,
		checkout:      checkout,
		subscriptions: subscriptions,
		cfg:           cfg,
		log:           log.Named("bot"),
	}
}

// Run читает обновления до отмены ctx или закрытия канала.
// Каждое обновление обрабатывается в своей горутине; Run дожидается их перед выходом.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.source.GetUpdatesChan(u)

	b.log.Info("Bot polling started")
	defer func() {
		b.wg.Wait()
		b.log.Info("Bot polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			b.source.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate обрабатывает одно обновление; прочие сообщения игнорируются
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	switch msg.Command() {
	case commandStart:
		out := tgbotapi.NewMessage(msg.Chat.ID, startMessage(b.cfg.PriceCents, b.cfg.PeriodDays))
		out.ReplyMarkup = mainKeyboard(b.cfg.PeriodDays)
		b.send(out)
	case commandStatus:
		b.sendStatus(ctx, msg.Chat.ID, msg.From.ID, true)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	switch cb.Data {
	case callbackPay:
		b.pay(ctx, chatID, cb.From.ID)
	case callbackStatus:
		b.sendStatus(ctx, chatID, cb.From.ID, false)
	default:
		b.log.Debug("Unknown callback %q from %d", cb.Data, cb.From.ID)
	}

	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("Failed to answer callback %s: %v", cb.ID, err)
	}
}

func (b *Bot) sendStatus(ctx context.Context, chatID, subscriberID int64, fromCommand bool) {
	sub, err := b.subscriptions.Get(ctx, subscriberID)
	if err != nil {
		b.log.Error("Failed to read subscription %d: %v", subscriberID, err)
		sub = domain.InactiveSubscriber(subscriberID)
	}
	b.send(tgbotapi.NewMessage(chatID, statusMessage(sub, fromCommand)))
}

// pay создает платеж и отправляет код, затем QR; часть без данных заменяется предупреждением
func (b *Bot) pay(ctx context.Context, chatID, subscriberID int64) {
	b.log.Info("Pay clicked by %d", subscriberID)

	offer, err := b.checkout.CreateCharge(ctx, subscriberID)
	if err != nil {
		b.log.Error("Failed to create charge for %d: %v", subscriberID, err)
		text := internalErrorMessage
		if errors.Is(err, domain.ErrGatewayRejected) || errors.Is(err, domain.ErrExternalServiceUnavailable) {
			text = gatewayErrorMessage
		}
		b.send(tgbotapi.NewMessage(chatID, text))
		return
	}

	if offer.HasPaymentCode() {
		b.send(tgbotapi.NewMessage(chatID, codeIntroMessage))
		code := tgbotapi.NewMessage(chatID, "`"+offer.PaymentCode+"`")
		code.ParseMode = tgbotapi.ModeMarkdown
		b.send(code)
	} else {
		b.send(tgbotapi.NewMessage(chatID, codeMissingMessage))
	}

	b.send(tgbotapi.NewMessage(chatID, qrIntroMessage))
	if len(offer.QRImage) > 0 {
		b.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: qrFileName, Bytes: offer.QRImage}))
	}

	b.send(tgbotapi.NewMessage(chatID, awaitPaymentMessage))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.log.Error("Failed to send message: %v", err)
	}
}
