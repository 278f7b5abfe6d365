//go:build windows

package servant

import (
	"os"
)

func writeRecord(path string, data []byte) error {
	return os.WriteFile(path, data, FileMode)
}
