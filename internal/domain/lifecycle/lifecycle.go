// Package lifecycle holds shared settings for fx start/stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds how long a single start or stop hook may block.
const DefaultTimeout = 10 * time.Second
