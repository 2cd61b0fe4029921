package output

import (
	"io"
	"os"

	"github.com/skip2/go-qrcode"
	"golang.org/x/term"
)

// QRConfig configures QR code rendering.
type QRConfig struct {
	// Level is the error correction level.
	Level qrcode.RecoveryLevel
	// Inverse swaps dark and light modules for light-on-dark terminals.
	Inverse bool
}

// DefaultQRConfig returns defaults for terminal QR rendering.
// Pairing URIs are long, so low correction keeps the code small.
func DefaultQRConfig() QRConfig {
	return QRConfig{Level: qrcode.Low}
}

// CanRenderQR checks if the output writer is a terminal suitable for QR rendering.
func CanRenderQR(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}

// EncodeQR returns data as a half-block QR code string.
func EncodeQR(data string, cfg QRConfig) (string, error) {
	q, err := qrcode.New(data, cfg.Level)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(cfg.Inverse), nil
}

// RenderQR renders a QR code to the writer if it's a terminal.
// Returns without error if the writer is not a terminal (no output is produced).
func RenderQR(w io.Writer, data string, cfg QRConfig) error {
	if !CanRenderQR(w) {
		return nil
	}
	s, err := EncodeQR(data, cfg)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}
