// Package qrcode renders token payloads as scannable images. Pure function
// from payload string to image bytes; no token semantics live here.
package qrcode

import (
	"encoding/base64"

	qr "github.com/skip2/go-qrcode"
)

const imageSize = 300

// Render encodes a payload as a PNG.
func Render(payload string) ([]byte, error) {
	return qr.Encode(payload, qr.Medium, imageSize)
}

// RenderDataURL encodes a payload as a base64 PNG data URL for embedding in
// JSON responses.
func RenderDataURL(payload string) (string, error) {
	png, err := Render(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
