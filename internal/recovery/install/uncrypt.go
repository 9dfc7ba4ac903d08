package install

import (
	"fmt"
	"os"
	"strings"
)

// DefaultUncryptStatusFile holds the status left behind by uncrypt.
const DefaultUncryptStatusFile = "/cache/recovery/uncrypt_status"

const uncryptPrefix = "uncrypt_"

// readUncryptStatus returns the trimmed status line. Content that does not
// start with "uncrypt_" is treated as corrupted.
func readUncryptStatus(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read uncrypt status: %w", err)
	}
	status := string(data)
	if !strings.HasPrefix(status, uncryptPrefix) {
		return "", fmt.Errorf("corrupted uncrypt status: %q", status)
	}
	return strings.TrimSpace(status), nil
}
