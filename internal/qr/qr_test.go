package qr

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestEncode(t *testing.T) {
	png, err := Encode("00020101021226850014br.gov.bcb.pix2563qrcodepix.example.com/v2/cobv/9d36b84f", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestEncode_EmptyCode(t *testing.T) {
	_, err := Encode("   ", DefaultSize)
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func TestDecodeImage(t *testing.T) {
	raw := append(append([]byte{}, pngMagic...), bytes.Repeat([]byte{0x01, 0x02, 0x03}, 50)...)
	enc := base64.StdEncoding.EncodeToString(raw)
	wrapped := enc[:40] + "\r\n" + enc[40:80] + "\n" + enc[80:]

	got, err := DecodeImage(wrapped)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDecodeImage_Invalid(t *testing.T) {
	_, err := DecodeImage("not*base64")
	assert.Error(t, err)

	_, err = DecodeImage("\r\n")
	assert.Error(t, err)
}
