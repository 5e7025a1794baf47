// Package pid guards against concurrent instances polling the same
// instrument, using a PID file in the system temp directory.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ravoegtlin/molbox-tester/internal/errors"
	"github.com/ravoegtlin/molbox-tester/internal/logger"
)

const pidFile = "molbox.pid"

var errFactory = errors.New()

// Path returns the PID file location.
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write claims the PID file for this process. It fails with
// errors.ErrAlreadyRunning when another live process holds it; a stale or
// unreadable file left behind by a dead process is replaced.
func Write() error {
	path := Path()

	if owner, ok := readOwner(path); ok {
		if processAlive(owner) {
			return errFactory.New(errors.ErrAlreadyRunning)
		}
		logger.Debug().Msgf("Removing stale PID file for process %d", owner)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrPIDFile, err)
	}

	return nil
}

// Remove releases the PID file. A missing file is not an error.
func Remove() error {
	if err := os.Remove(Path()); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrPIDFile, err)
	}

	return nil
}

// readOwner parses the PID recorded in the file, if any.
func readOwner(path string) (int, bool) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	owner, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || owner <= 0 {
		return 0, false
	}

	return owner, true
}

// processAlive checks the process with a null signal.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
