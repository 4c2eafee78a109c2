// Package lifecycle holds shared lifecycle constants used by fx hooks.
package lifecycle

import "time"

// DefaultTimeout bounds graceful startup and shutdown steps.
const DefaultTimeout = 10 * time.Second
