// Package instance names the running process in logs and lock tokens.
package instance

import (
	"os"
	"strings"
	"sync"
)

const fallbackID = "worker-0"

var resolveID = sync.OnceValue(func() string {
	return idFrom(os.Getenv, os.Hostname)
})

// GetID prefers DATAVEND_WORKER_ID, then the hostname. Cloud Run and
// Kubernetes give every replica a distinct hostname.
func GetID() string {
	return resolveID()
}

func idFrom(getenv func(string) string, hostname func() (string, error)) string {
	if id := strings.TrimSpace(getenv("DATAVEND_WORKER_ID")); id != "" {
		return id
	}
	if host, err := hostname(); err == nil && strings.TrimSpace(host) != "" {
		return strings.TrimSpace(host)
	}
	return fallbackID
}
