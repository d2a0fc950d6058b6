// Package lock provides the single-instance guard for one Piperack
// session: a PID file in the user's runtime directory, keyed by the
// resolved config path so distinct projects never collide but re-running
// the same one does. Adapted from the teacher's socket/PID-file runtime
// directory resolution, now guarding a single process instead of dialing
// a daemon over it.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is returned by Acquire when a live Piperack instance
// already holds the lock for this key.
var ErrAlreadyRunning = errors.New("piperack: an instance is already running for this configuration")

// RuntimeDir resolves the directory Piperack stores its PID files in.
// Precedence: PIPERACK_RUNTIME_DIR, then XDG_RUNTIME_DIR on Linux, then
// /run/user/<uid>, falling back to /tmp elsewhere.
func RuntimeDir() string {
	if rd := os.Getenv("PIPERACK_RUNTIME_DIR"); rd != "" {
		return rd
	}
	uid := currentUID()
	if runtime.GOOS == "linux" {
		if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
			return filepath.Join(v, "piperack")
		}
		return filepath.Join("/run/user", uid, "piperack")
	}
	return filepath.Join("/tmp", "piperack-"+uid)
}

func currentUID() string {
	u, err := user.Current()
	if err == nil && u != nil && u.Uid != "" {
		return u.Uid
	}
	return "0"
}

// Key derives a stable lock key from a config path (or the working
// directory, when running config-less off the CLI).
func Key(configPath string) string {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		abs = configPath
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:16]
}

func pidPath(key string) string {
	return filepath.Join(RuntimeDir(), "piperack-"+key+".pid")
}

// Lock is a held single-instance guard. Release removes the PID file.
type Lock struct {
	path string
}

// Acquire takes the lock for key, returning ErrAlreadyRunning if a live
// process already holds it. A PID file left behind by a crashed process
// (stale: no such PID alive) is reclaimed automatically.
func Acquire(key string) (*Lock, error) {
	if err := os.MkdirAll(RuntimeDir(), 0o700); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}
	path := pidPath(key)

	if pid, err := readPID(path); err == nil {
		if processAlive(pid) {
			return nil, ErrAlreadyRunning
		}
		_ = os.Remove(path) // stale
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the PID file. Safe to call if already removed.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	return pid, nil
}
