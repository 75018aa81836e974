package bot

import (
	"fmt"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackPay    = "pay"
	callbackStatus = "status"

	commandStart  = "start"
	commandStatus = "status"

	qrFileName = "pix_qr.png"
)

const (
	codeIntroMessage   = "✅ Segue o Pix Copia e Cola para fazer o pagamento:"
	codeMissingMessage = "⚠️ Não encontrei o Pix Copia e Cola na resposta.\n" +
		"Abra os logs e procure: INVICTUS_CREATE_JSON."
	qrIntroMessage       = "📌 Aqui está o QR Code se preferir:"
	awaitPaymentMessage  = "⏳ Assim que o pagamento for confirmado, o acesso será liberado automaticamente."
	gatewayErrorMessage  = "❌ Erro ao gerar Pix. Abra os logs e veja INVICTUS: status_code/raw."
	internalErrorMessage = "❌ Erro ao gerar Pix. Abra os logs e veja o erro completo."
)

func startMessage(priceCents, periodDays int) string {
	return fmt.Sprintf("🔒 Assinatura VIP (%d dias)\n", periodDays) +
		fmt.Sprintf("💰 Valor: %s\n\n", notify.FormatPrice(priceCents)) +
		"Use os botões:"
}

// statusMessage текст статуса; fromCommand добавляет подсказку про /start
func statusMessage(sub domain.Subscriber, fromCommand bool) string {
	if sub.IsActive() {
		text := "✅ Assinatura ATIVA\n📅 Válida até: " + notify.FormatExpiry(sub.ExpiresAt)
		if fromCommand {
			text += "\n\nPara renovar, use /start."
		}
		return text
	}
	if fromCommand {
		return "⚠️ Você está SEM assinatura ativa.\nUse /start para assinar/renovar."
	}
	return "⚠️ Você está SEM assinatura ativa.\nClique em Assinar/Renovar."
}

func mainKeyboard(periodDays int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Assinar / Renovar (%d dias)", periodDays), callbackPay),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📌 Ver assinatura", callbackStatus),
		),
	)
}
