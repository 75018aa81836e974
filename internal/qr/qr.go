// Package qr картинка QR для Pix-кода.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultSize сторона PNG в пикселях
const DefaultSize = 256

// ErrEmptyCode нечего кодировать
var ErrEmptyCode = errors.New("qr: empty payment code")

// Encode строит PNG с QR из кода "copia e cola"
func Encode(code string, size int) ([]byte, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: failed to encode: %w", err)
	}
	return png, nil
}

// DecodeImage декодирует base64 картинку от шлюза; переводы строк внутри допускаются
func DecodeImage(payload string) ([]byte, error) {
	clean := strings.NewReplacer("\n", "", "\r", "", " ", "").Replace(payload)
	if clean == "" {
		return nil, errors.New("qr: empty image payload")
	}
	img, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		img, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
		if err != nil {
			return nil, fmt.Errorf("qr: invalid base64 image: %w", err)
		}
	}
	return img, nil
}
