package output

import (
	"fmt"
	"io"
)

// Info writes an informational line to w.
func Info(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "ℹ️  "+fmt.Sprintf(format, args...))
}

// Warn writes a warning line to w.
func Warn(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "⚠️  "+fmt.Sprintf(format, args...))
}

// Success writes a success line to w.
func Success(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "✅ "+fmt.Sprintf(format, args...))
}

// Pairing shows a wallet pairing URI on w, followed by its QR code when w
// is a terminal.
func Pairing(w io.Writer, uri string) error {
	Info(w, "Scan the code with your wallet or paste the URI:")
	if _, err := fmt.Fprintln(w, uri); err != nil {
		return err
	}
	return RenderQR(w, uri, DefaultQRConfig())
}
