package service

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// GenerateQRCode renders the short URL as a 256px PNG and returns it as a
// base64 data URL suitable for embedding directly in an <img> tag.
func GenerateQRCode(shortURL string) (string, error) {
	png, err := qrcode.Encode(shortURL, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
