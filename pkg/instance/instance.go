package instance

import "os"

// GetID identifies this worker replica in logs. It prefers an explicit
// WORKER_ID, falls back to the pod hostname, and finally a static default.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
