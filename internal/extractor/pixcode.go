package extractor

import (
	"strings"
)

const (
	// PixMarker фиксированный заголовок EMV-кода Pix
	PixMarker = "000201"

	minPixCodeLength = 51
	rawScanWindow    = 3000
)

// PixCode эвристика поиска кода "copia e cola"
type PixCode struct{}

// Match лист подходит, если после маркера (включительно) остается больше 50 символов
func (PixCode) Match(leaf string) (string, bool) {
	s := strings.TrimSpace(leaf)
	i := strings.Index(s, PixMarker)
	if i < 0 {
		return "", false
	}
	cand := strings.TrimSpace(s[i:])
	if len(cand) < minPixCodeLength {
		return "", false
	}
	return cand, true
}

// Fallback ищет маркер в сыром тексте; экранированный JSON обрезается на первой кавычке или \
func (PixCode) Fallback(raw string) (string, bool) {
	i := strings.Index(raw, PixMarker)
	if i < 0 {
		return "", false
	}
	end := i + rawScanWindow
	if end > len(raw) {
		end = len(raw)
	}
	cand := raw[i:end]
	if j := strings.IndexAny(cand, `"\`); j >= 0 {
		cand = cand[:j]
	}
	cand = strings.TrimSpace(cand)
	if len(cand) < minPixCodeLength {
		return "", false
	}
	return cand, true
}

// PaymentCode возвращает код Pix из ответа шлюза
func PaymentCode(parsed any, raw string) (string, bool) {
	return Find(PixCode{}, parsed, raw)
}
