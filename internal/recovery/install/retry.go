package install

import (
	"context"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// DefaultMaxRetries bounds how often a retry_update request is honored.
const DefaultMaxRetries = 3

// InstallWithRetry re-runs the attempt with an incremented retry count while
// the executor asks for a retry, up to maxRetries extra attempts. It returns
// the last attempt.
func (i *Installer) InstallWithRetry(ctx context.Context, ui core.UI, path string, firstRetry, maxRetries int) (*Attempt, error) {
	retry := firstRetry
	for {
		a, err := i.InstallPackage(ctx, core.NewSession(ui, retry), path)
		if a.Result != core.Retry {
			return a, err
		}
		if retry >= maxRetries {
			log.Warn("Giving up after retries", "package", path, "retries", retry)
			return a, err
		}
		if ctx.Err() != nil {
			return a, err
		}
		retry++
		log.Info("Retrying install", "package", path, "retry", retry)
	}
}
