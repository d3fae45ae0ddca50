package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSessionID generates a collision-free session identifier with a
// timestamp prefix and a random suffix, e.g. "opt-20260826-101500-a1b2c3d4".
func GenerateSessionID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("opt-%s-%s", timestamp, suffix)
}

// DesignKey builds the unique ledger key for a design record. The geometry
// id alone is not unique across retries, so the write timestamp is folded in.
func DesignKey(geometryID string, ts time.Time) string {
	stamp := ts.UTC().Format("20060102T150405.000000000")
	return fmt.Sprintf("%s_%s", geometryID, strings.ReplaceAll(stamp, ".", "-"))
}
