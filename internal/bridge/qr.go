package bridge

import (
	"github.com/skip2/go-qrcode"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

const qrSize = 256

// WriteQRPNG writes uri as a PNG QR code to path.
func WriteQRPNG(uri, path string) error {
	if err := qrcode.WriteFile(uri, qrcode.Medium, qrSize, path); err != nil {
		return tethererr.Wrap(err, "writing pairing QR to %s", path)
	}
	return nil
}
