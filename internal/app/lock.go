package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/flock"

	"blp-icon-converter/internal/convert"
	"blp-icon-converter/internal/logging"
)

const (
	lockRetryDelay    = 100 * time.Millisecond
	lockRetryMaxDelay = 2 * time.Second
)

type destLock struct {
	lock *flock.Flock
}

func (l *destLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock destination lock: %w", err)
	}
	return nil
}

// destLockPath returns one lock file per destination directory, under the
// user cache directory.
func destLockPath(destDir string) (string, error) {
	root, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(root, "blp-icon-converter", "locks", convert.DestKey(destDir)+".lock"), nil
}

// acquireDestLock waits up to timeout, backing off exponentially, for any
// other run on the same destination to finish.
func acquireDestLock(ctx context.Context, destDir string, timeout time.Duration, logger *logging.Logger) (*destLock, error) {
	lockPath, err := destLockPath(destDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f := flock.New(lockPath)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = lockRetryDelay
	retry.MaxInterval = lockRetryMaxDelay
	retry.Reset()

	opts := []backoff.RetryOption{
		backoff.WithBackOff(retry),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Info("waiting for another run to release the destination",
				logging.Field("lock", lockPath),
				logging.Field("next_retry", next))
		}),
	}
	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		locked, lockErr := f.TryLock()
		if lockErr != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("acquire destination lock: %w", lockErr))
		}
		if !locked {
			return struct{}{}, errLockBusy
		}
		return struct{}{}, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, errLockBusy) {
			return nil, fmt.Errorf("%w (%s)", ErrLockTimeout, lockPath)
		}
		return nil, err
	}
	logger.Debug("destination lock acquired", logging.Field("lock", lockPath))
	return &destLock{lock: f}, nil
}
