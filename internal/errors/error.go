package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrNotConfigured     = errors.New("service is not configured")

	// workspace errors
	ErrWorkspaceNotFound      = errors.New("workspace not found")
	ErrWorkspaceAPIKeyMissing = errors.New("no api key available for workspace")

	// sync errors
	ErrLockNotAcquired   = errors.New("sync lock is held by another job")
	ErrSyncJobNotFound   = errors.New("sync job not found")
	ErrWorkspaceTimedOut = errors.New("workspace sync timed out")
	ErrPageLimitExceeded = errors.New("pagination safety limit exceeded")
)
