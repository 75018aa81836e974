package bot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

type fakeCheckout struct {
	offer *domain.ChargeOffer
	err   error
	got   int64
}

func (f *fakeCheckout) CreateCharge(_ context.Context, id int64) (*domain.ChargeOffer, error) {
	f.got = id
	return f.offer, f.err
}

type fakeSubscriptions map[int64]domain.Subscriber

func (f fakeSubscriptions) Get(_ context.Context, id int64) (domain.Subscriber, error) {
	if sub, ok := f[id]; ok {
		return sub, nil
	}
	return domain.InactiveSubscriber(id), nil
}

func newTestBot(sender *fakeSender, checkout Checkout, subs SubscriptionReader) *Bot {
	return New(nil, sender, checkout, subs, Config{PriceCents: 599, PeriodDays: 30},
		logger.NewWithWriter(logger.ERROR, io.Discard))
}

func command(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
	}}
}

func TestStart_ShowsPriceAndButtons(t *testing.T) {
	sender := &fakeSender{}
	newTestBot(sender, &fakeCheckout{}, fakeSubscriptions{}).HandleUpdate(context.Background(), command(42, "/start"))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "R$ 5.99")
	assert.Contains(t, msg.Text, "30 dias")

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "✅ Assinar / Renovar (30 dias)", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, callbackPay, *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, callbackStatus, *kb.InlineKeyboard[1][0].CallbackData)
}

func TestStatus(t *testing.T) {
	exp := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)
	subs := fakeSubscriptions{42: {ID: 42, Status: domain.SubscriptionStatusActive, ExpiresAt: &exp}}

	sender := &fakeSender{}
	b := newTestBot(sender, &fakeCheckout{}, subs)
	b.HandleUpdate(context.Background(), command(42, "/status"))
	b.HandleUpdate(context.Background(), command(7, "/status"))
	b.HandleUpdate(context.Background(), callback(42, "status"))
	b.HandleUpdate(context.Background(), callback(7, "status"))

	texts := sender.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, "✅ Assinatura ATIVA\n📅 Válida até: 2026-05-01 12:30 UTC\n\nPara renovar, use /start.", texts[0])
	assert.Contains(t, texts[1], "SEM assinatura ativa")
	assert.Contains(t, texts[1], "/start")
	assert.Equal(t, "✅ Assinatura ATIVA\n📅 Válida até: 2026-05-01 12:30 UTC", texts[2])
	assert.Contains(t, texts[3], "Clique em Assinar/Renovar")

	assert.Len(t, sender.requests, 2)
}

func TestPay_SendsCodeThenQR(t *testing.T) {
	sender := &fakeSender{}
	checkout := &fakeCheckout{offer: &domain.ChargeOffer{
		SubscriberID: 42,
		PaymentCode:  "000201pix",
		QRImage:      []byte{0x89, 'P', 'N', 'G'},
	}}

	newTestBot(sender, checkout, fakeSubscriptions{}).HandleUpdate(context.Background(), callback(42, "pay"))

	assert.Equal(t, int64(42), checkout.got)
	texts := sender.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, codeIntroMessage, texts[0])
	assert.Equal(t, "`000201pix`", texts[1])
	assert.Equal(t, qrIntroMessage, texts[2])
	assert.Equal(t, awaitPaymentMessage, texts[3])

	code := sender.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, tgbotapi.ModeMarkdown, code.ParseMode)

	photos := sender.photos()
	require.Len(t, photos, 1)
	file, ok := photos[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, qrFileName, file.Name)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, file.Bytes)

	require.Len(t, sender.requests, 1)
}

func TestPay_NoCodeWarnsSoftly(t *testing.T) {
	sender := &fakeSender{}
	checkout := &fakeCheckout{offer: &domain.ChargeOffer{SubscriberID: 42, QRImage: []byte("img")}}

	newTestBot(sender, checkout, fakeSubscriptions{}).HandleUpdate(context.Background(), callback(42, "pay"))

	texts := sender.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, codeMissingMessage, texts[0])
	assert.Contains(t, texts[0], "INVICTUS_CREATE_JSON")
	assert.Len(t, sender.photos(), 1)
}

func TestPay_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"gateway", domain.NewExternalServiceError("invictus", "http_500", "oops", 500, domain.ErrGatewayRejected), gatewayErrorMessage},
		{"store", errors.New("db down"), internalErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeSender{}
			newTestBot(sender, &fakeCheckout{err: tc.err}, fakeSubscriptions{}).HandleUpdate(context.Background(), callback(1, "pay"))

			assert.Equal(t, []string{tc.want}, sender.texts())
			assert.Empty(t, sender.photos())
			assert.Len(t, sender.requests, 1)
		})
	}
}

func TestPay_SendFailureDoesNotStopFlow(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("blocked by user")}
	checkout := &fakeCheckout{offer: &domain.ChargeOffer{SubscriberID: 1, PaymentCode: "000201"}}

	newTestBot(sender, checkout, fakeSubscriptions{}).HandleUpdate(context.Background(), callback(1, "pay"))

	assert.Len(t, sender.texts(), 4)
}

func TestHandleUpdate_IgnoresPlainText(t *testing.T) {
	sender := &fakeSender{}
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "oi", From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1},
	}}

	newTestBot(sender, &fakeCheckout{}, fakeSubscriptions{}).HandleUpdate(context.Background(), update)

	assert.Empty(t, sender.sent)
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped bool
	timeout int
}

func (f *fakeSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.timeout = cfg.Timeout
	return f.ch
}

func (f *fakeSource) StopReceivingUpdates() { f.stopped = true }

func TestRun_HandlesUpdatesUntilChannelCloses(t *testing.T) {
	source := &fakeSource{ch: make(chan tgbotapi.Update, 2)}
	sender := &fakeSender{}
	b := New(source, sender, &fakeCheckout{}, fakeSubscriptions{}, Config{PriceCents: 599, PeriodDays: 30},
		logger.NewWithWriter(logger.ERROR, io.Discard))

	source.ch <- command(1, "/start")
	source.ch <- command(2, "/start")
	close(source.ch)

	b.Run(context.Background())

	assert.Len(t, sender.texts(), 2)
	assert.Equal(t, pollTimeoutSeconds, source.timeout)
	assert.False(t, source.stopped)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	source := &fakeSource{ch: make(chan tgbotapi.Update)}
	b := New(source, &fakeSender{}, &fakeCheckout{}, fakeSubscriptions{}, Config{},
		logger.NewWithWriter(logger.ERROR, io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	assert.True(t, source.stopped)
}
