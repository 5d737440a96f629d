package host

import (
	"fmt"
	"os"
)

// Guard verifies the process runs with root privileges before anything
// mutates the host.
type Guard struct {
	euid func() int
}

func NewGuard() *Guard {
	return &Guard{euid: os.Geteuid}
}

// Check returns an error when the effective user is not root. It has no
// side effects.
func (g *Guard) Check() error {
	if g.euid() != 0 {
		return fmt.Errorf("root privileges are required; re-run with sudo")
	}
	return nil
}
