// Package daemon tracks a backgrounded `itrack serve` process through a PID
// file in the state directory.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// PIDFileName and LogFileName live in the itrack state directory.
	PIDFileName = "itrack-serve.pid"
	LogFileName = "itrack-serve.log"

	stopPollInterval = 100 * time.Millisecond
)

var (
	// ErrNotRunning is returned when no live process owns the PID file.
	ErrNotRunning = errors.New("server is not running")
)

// AlreadyRunningError is returned by Acquire when another live process holds
// the PID file.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("server already running (pid %d)", e.PID)
}

// PIDFile records the PID of a running server.
type PIDFile struct {
	Path string
}

// NewPIDFile returns a PIDFile at path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// InDir returns the PID file used for servers started from stateDir.
func InDir(stateDir string) *PIDFile {
	return NewPIDFile(filepath.Join(stateDir, PIDFileName))
}

// LogPath returns the log file a backgrounded server writes to.
func LogPath(stateDir string) string {
	return filepath.Join(stateDir, LogFileName)
}

// Write records the current process.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID records pid, creating the parent directory if needed.
func (p *PIDFile) WritePID(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded PID.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// Acquire records pid unless a live process already holds the file. A stale
// file left by a dead process is overwritten.
func (p *PIDFile) Acquire(pid int) error {
	if cur, running := p.IsRunning(); running && cur != pid {
		return &AlreadyRunningError{PID: cur}
	}
	return p.WritePID(pid)
}

// Release removes the file if it still names pid.
func (p *PIDFile) Release(pid int) error {
	cur, err := p.Read()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if cur != pid {
		return nil
	}
	return p.Remove()
}

// Stop asks the recorded process to shut down and waits up to timeout for it
// to exit. The PID file is removed once the process is gone.
func (p *PIDFile) Stop(timeout time.Duration) (int, error) {
	pid, running := p.IsRunning()
	if !running {
		if pid != 0 {
			_ = p.Remove()
		}
		return 0, ErrNotRunning
	}
	if err := p.Signal(stopSignal); err != nil {
		return pid, fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, running := p.IsRunning(); !running {
			_ = p.Remove()
			return pid, nil
		}
		time.Sleep(stopPollInterval)
	}
	return pid, fmt.Errorf("pid %d did not exit within %s", pid, timeout)
}
