package qrcode

import (
	"net/url"

	qr "github.com/skip2/go-qrcode"
)

// JoinURL returns the websocket address a guest dials to join a room.
func JoinURL(host, room string) string {
	u := url.URL{
		Scheme:   "ws",
		Host:     host,
		Path:     "/ws",
		RawQuery: url.Values{"room": {room}}.Encode(),
	}
	return u.String()
}

// Generate creates a QR code PNG image for the given URL.
func Generate(url string) ([]byte, error) {
	return qr.Encode(url, qr.Medium, 256)
}
