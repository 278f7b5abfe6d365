//go:build !linux

package servant

const scanSupported = false

type procEntry struct {
	pid int
}

func (p procEntry) environ() ([]string, bool) {
	return nil, false
}

func (s *Scanner) processes() ([]procEntry, error) {
	return nil, ErrNotSupported
}

func (s *Scanner) zombies() (map[int]struct{}, error) {
	return nil, ErrNotSupported
}

func processZombie(root string, pid int) bool {
	return false
}
