package queryserver

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/Redish101/gn/internal/fnerrors"
)

// redirectStdio duplicates the process's current stdout/stderr to hidden
// backup descriptors, then points fd 1 and fd 2 at newStdout/newStderr.
// The returned restore func reinstates the backups and must be called on
// every exit path from the connection that installed it — success, error,
// or panic — which is why callers invoke it via defer immediately after a
// successful call.
func redirectStdio(newStdout, newStderr int) (restore func() error, err error) {
	backupOut, err := unix.Dup(int(os.Stdout.Fd()))
	if err != nil {
		return nil, fnerrors.InternalError("failed to back up stdout: %v", err)
	}
	backupErr, err := unix.Dup(int(os.Stderr.Fd()))
	if err != nil {
		_ = unix.Close(backupOut)
		return nil, fnerrors.InternalError("failed to back up stderr: %v", err)
	}

	if err := unix.Dup2(newStdout, int(os.Stdout.Fd())); err != nil {
		_ = unix.Close(backupOut)
		_ = unix.Close(backupErr)
		return nil, fnerrors.InternalError("failed to redirect stdout: %v", err)
	}
	if err := unix.Dup2(newStderr, int(os.Stderr.Fd())); err != nil {
		_ = unix.Dup2(backupOut, int(os.Stdout.Fd()))
		_ = unix.Close(backupOut)
		_ = unix.Close(backupErr)
		return nil, fnerrors.InternalError("failed to redirect stderr: %v", err)
	}

	restored := false
	return func() error {
		if restored {
			return nil
		}
		restored = true

		err1 := unix.Dup2(backupOut, int(os.Stdout.Fd()))
		err2 := unix.Dup2(backupErr, int(os.Stderr.Fd()))
		_ = unix.Close(backupOut)
		_ = unix.Close(backupErr)

		if err1 != nil {
			return err1
		}
		return err2
	}, nil
}
