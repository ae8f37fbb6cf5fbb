package lib

import (
	"bytes"
	"log"

	"github.com/yeqown/go-qrcode"
)

// InviteQRCode renders the invite URL as a JPEG QR code.
func InviteQRCode(inviteURL string) ([]byte, error) {
	qrc, err := qrcode.New(inviteURL)
	if err != nil {
		log.Printf("Error generating qrcode: %s\n", err.Error())
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		log.Printf("Could not write qrcode: %s\n", err.Error())
		return nil, err
	}
	return buf.Bytes(), nil
}
