// Package state keeps the invalidation index: which recorded queries read
// which tables. A cache layer uses it to find the entries to purge when a
// table changes.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/leapstack-labs/querytables/pkg/tables"
)

// QueryRecord is a query stored in the index together with the cache
// attributes computed for it.
type QueryRecord struct {
	ID            string         `json:"id" yaml:"id"`
	Fingerprint   string         `json:"fingerprint" yaml:"fingerprint"`
	SQL           string         `json:"sql" yaml:"sql"`
	CacheChannel  string         `json:"cache_channel" yaml:"cache_channel"`
	LastUpdatedAt *time.Time     `json:"last_updated_at,omitempty" yaml:"last_updated_at,omitempty"`
	RecordedAt    time.Time      `json:"recorded_at" yaml:"recorded_at"`
	Tables        []tables.Table `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// Fingerprint identifies a query by the SHA-256 of its exact text.
func Fingerprint(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}
