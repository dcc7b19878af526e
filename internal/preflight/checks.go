package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"loopctl/internal/remote"
	"loopctl/internal/transport"
)

// serviceCheckTimeout bounds CheckService independently of the configured
// request timeout.
const serviceCheckTimeout = 5 * time.Second

// StatusProber fetches the service's run status.
type StatusProber interface {
	Status(ctx context.Context) (remote.RunStatus, error)
}

// CheckService verifies that the service answers GET /status.
func CheckService(ctx context.Context, name string, prober StatusProber) Result {
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	status, err := prober.Status(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	detail := "Reachable"
	if status.Status != "" {
		detail = fmt.Sprintf("Reachable (%s)", status.Status)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckUploadSource verifies that path is a regular file the current user can read.
func CheckUploadSource(path string) Result {
	const name = "Upload source"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableParent verifies that the file at path can be created: its
// directory, or the nearest ancestor that already exists, must be writable.
func CheckWritableParent(name, path string) Result {
	dir := filepath.Dir(path)
	existing := nearestExisting(dir, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	result := CheckDirectoryAccess(name, existing)
	if result.Passed {
		if existing == dir {
			result.Detail = fmt.Sprintf("%s (writable)", path)
		} else {
			result.Detail = fmt.Sprintf("%s (will create %s)", path, dir)
		}
	}
	return result
}

// summarizeServiceError produces a human-readable summary for service check failures.
func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "status check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "status check timed out (service unreachable)"
	}
	if terr, ok := transport.AsError(err); ok && terr.Kind == transport.KindStatus {
		return fmt.Sprintf("service answered with an error (%s)", terr.Error())
	}
	return err.Error()
}
