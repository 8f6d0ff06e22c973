package custody

import "go.uber.org/zap"

// withScopedSecret pins secret in RAM, hands it to fn and wipes it when fn
// returns or panics. fn must not keep a reference to the slice.
func withScopedSecret(logger *zap.Logger, secret []byte, fn func([]byte) error) error {
	if err := lockMemory(secret); err != nil {
		// RLIMIT_MEMLOCK is often tiny for unprivileged users
		logger.Warn("failed to lock secret memory", zap.Error(err))
	}
	defer func() {
		clear(secret)
		_ = unlockMemory(secret)
	}()

	return fn(secret)
}
