package extractor

import (
	"regexp"
	"strings"
)

const (
	dataURIPrefix = "data:image/"
	base64Sep     = "base64,"

	// DefaultMinImageLength минимальная длина "голой" base64-строки
	DefaultMinImageLength = 200
	// StrictMinImageLength более строгий вариант для шумных ответов
	StrictMinImageLength = 300

	base64SampleLength = 300
)

var dataURIRegexp = regexp.MustCompile(`data:image/[^;]+;base64,([A-Za-z0-9+/=\n\r]+)`)

// Image эвристика поиска QR-картинки в base64
type Image struct {
	MinLength int
}

// Match data-URI подходит сразу; иначе длинная строка из алфавита base64
func (h Image) Match(leaf string) (string, bool) {
	s := strings.TrimSpace(leaf)
	if strings.HasPrefix(s, dataURIPrefix) {
		if i := strings.Index(s, base64Sep); i >= 0 {
			return s[i+len(base64Sep):], true
		}
	}
	if looksLikeBase64(s, h.minLength()) {
		return s, true
	}
	return "", false
}

// Fallback ищет data-URI регулярным выражением по сырому тексту
func (Image) Fallback(raw string) (string, bool) {
	m := dataURIRegexp.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (h Image) minLength() int {
	if h.MinLength <= 0 {
		return DefaultMinImageLength
	}
	return h.MinLength
}

func looksLikeBase64(s string, minLength int) bool {
	if len(s) < minLength {
		return false
	}
	sample := s
	if len(sample) > base64SampleLength {
		sample = sample[:base64SampleLength]
	}
	for i := 0; i < len(sample); i++ {
		if !isBase64Char(sample[i]) {
			return false
		}
	}
	return true
}

func isBase64Char(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+', c == '/', c == '=', c == '\n', c == '\r':
		return true
	}
	return false
}

// ImagePayload возвращает base64 QR-картинки из ответа шлюза
func ImagePayload(parsed any, raw string, minLength int) (string, bool) {
	return Find(Image{MinLength: minLength}, parsed, raw)
}
