package utils

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// Counter for sequential IDs
	idCounter uint64
)

// GenerateID generates a process-unique ID
func GenerateID() string {
	count := atomic.AddUint64(&idCounter, 1)
	timestamp := time.Now().UnixNano()
	return fmt.Sprintf("%x-%x", timestamp, count)
}

// GenerateRunID generates a sweep run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("sweep-%s-%s", timestamp, suffix)
}

// ValidateRunID rejects IDs that cannot be used as a path segment.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if strings.ContainsAny(id, "/:?#") {
		return fmt.Errorf("run id %q cannot contain '/', ':', '?' or '#'", id)
	}
	return nil
}
