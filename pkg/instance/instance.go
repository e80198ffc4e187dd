package instance

import (
	"os"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/env"
)

// EnvInstanceID overrides the detected process identifier.
const EnvInstanceID = "BULKBUDDY_INSTANCE_ID"

// ID identifies this process in logs and lock ownership. It prefers an
// explicit override, then the platform dyno name, then the hostname.
func ID() string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	if dyno := env.Get("DYNO", ""); dyno != "" {
		return dyno
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
