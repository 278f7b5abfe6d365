//go:build !windows

package servant

import (
	"github.com/google/renameio/v2"
)

func writeRecord(path string, data []byte) error {
	return renameio.WriteFile(path, data, FileMode)
}
