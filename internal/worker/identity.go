package worker

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Identity generates a worker identity unique across hosts, processes, and
// restarts. It is recorded as the owner of every record the worker claims.
func Identity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}
