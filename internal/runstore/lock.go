package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	exportLockDirName = ".export.lock"
	lockOwnerFile     = "owner.json"
)

type DirLock struct {
	lockDir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// AcquireExportLock claims dir for a single exporter until Release.
func AcquireExportLock(dir string) (DirLock, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return DirLock{}, fmt.Errorf("output directory is required")
	}

	lockDir := filepath.Join(target, exportLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, lockOwnerFile)
			var owner lockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return DirLock{}, fmt.Errorf(
					"output directory is locked: %s (pid=%d created_at=%s host=%s)",
					target, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return DirLock{}, fmt.Errorf("output directory is locked: %s", target)
		}
		return DirLock{}, fmt.Errorf("acquire export lock for %s: %w", target, err)
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, lockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return DirLock{}, fmt.Errorf("write export lock owner for %s: %w", target, err)
	}

	return DirLock{lockDir: lockDir}, nil
}

func (l DirLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release export lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
