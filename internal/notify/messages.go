package notify

import (
	"fmt"
	"time"
)

// Тексты для покупателя на португальском, как в боте

// ExpiryLayout формат срока подписки в сообщениях
const ExpiryLayout = "2006-01-02 15:04 UTC"

// FormatPrice "R$ 5.99" из суммы в сентаво
func FormatPrice(cents int) string {
	return fmt.Sprintf("R$ %.2f", float64(cents)/100)
}

// FormatExpiry срок в UTC; nil выводится как "-"
func FormatExpiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(ExpiryLayout)
}

func accessWithLinkMessage(link string, expiresAt time.Time) string {
	return "✅ Pagamento confirmado!\n\n" +
		"Aqui está seu acesso:\n" + link + "\n\n" +
		"📅 Válido até: " + FormatExpiry(&expiresAt)
}

func accessWithInviteMessage(link string, ttl time.Duration, expiresAt time.Time) string {
	return "✅ Pagamento confirmado!\n\n" +
		fmt.Sprintf("Link (expira em %d min):\n%s\n\n", int(ttl.Minutes()), link) +
		"📅 Válido até: " + FormatExpiry(&expiresAt)
}

const accessNotConfiguredMessage = "✅ Pago, mas falta configurar GROUP_INVITE_LINK ou GROUP_CHAT_ID."

func renewalMessage(priceCents, periodDays int) string {
	return "⚠️ Sua assinatura expirou.\n\n" +
		fmt.Sprintf("💰 Renovação: %s / %d dias\n", FormatPrice(priceCents), periodDays) +
		"Use /start para gerar um novo Pix."
}
