package instance

import (
	"os"
	"strings"
)

// GetID identifies this replica in logs and lock ownership. It prefers
// MENUBOT_INSTANCE_ID, then the Heroku dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{"MENUBOT_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
