package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Decrypt writes a decrypted copy of an encrypted PDF to a temporary file.
// Unencrypted documents are returned unchanged. The cleanup function removes
// any temporary file and is always safe to call.
func Decrypt(path, password string) (string, func(), error) {
	noop := func() {}

	if _, err := pageCount(path, ""); err == nil || !IsPasswordError(err) {
		return path, noop, nil
	}
	if password == "" {
		return "", noop, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}

	tmp, err := os.CreateTemp("", "shiplabel-decrypted-*.pdf")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if err := api.DecryptFile(path, tmp.Name(), passwordConfig(password)); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: %s: %w", ErrEncrypted, path, err)
	}
	return tmp.Name(), cleanup, nil
}
