// Package lock implements the advisory lockfile guarding workspace-mutating
// commands (spec.md §5 "Shared-resource policy": init and build are
// mutually exclusive per workspace via a simple advisory lockfile at
// <target_dir>/.empack.lock"). This is new infrastructure the teacher never
// needed (mcdex assumed single-invocation, single-user runs); grounded on
// the teacher's util.go writeStream atomic-rename pattern for the actual
// file write, since advisory locks and atomic writes share the same
// "create exclusively, clean up on failure" shape.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"empack/internal/errs"
)

const FileName = ".empack.lock"

// Payload is the JSON body written into the lockfile, useful for a human
// inspecting a stale lock to decide whether it is safe to remove.
type Payload struct {
	HolderUUID string `json:"holder_uuid"`
	PID        int    `json:"pid"`
	Command    string `json:"command"`
	AcquiredAt string `json:"acquired_at"`
}

// Lock represents a held advisory lock; call Release when the command
// finishes (success or failure).
type Lock struct {
	path    string
	payload Payload
}

// Acquire creates <targetDir>/.empack.lock exclusively. If a lock already
// exists, returns a BoundaryViolation-kind error naming the holder so the
// caller can decide whether to wait or force-remove it.
func Acquire(targetDir, command string, acquiredAt string) (*Lock, error) {
	path := filepath.Join(targetDir, FileName)

	payload := Payload{
		HolderUUID: uuid.NewString(),
		PID:        os.Getpid(),
		Command:    command,
		AcquiredAt: acquiredAt,
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal lock payload: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			existing, readErr := readPayload(path)
			detail := "another empack command is already running in this workspace"
			if readErr == nil {
				detail = fmt.Sprintf("held by pid %d running %q since %s", existing.PID, existing.Command, existing.AcquiredAt)
			}
			return nil, errs.New(errs.BoundaryViolation,
				"workspace is locked",
				detail,
				"wait for the other command to finish, or remove "+path+" if you're sure it's stale")
		}
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(body); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}

	return &Lock{path: path, payload: payload}, nil
}

func readPayload(path string) (Payload, error) {
	var p Payload
	body, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Release removes the lockfile. Safe to call even if the file was already
// removed out-of-band.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
