package tables

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
)

const (
	// keyNamespace prefixes every surrogate key.
	keyNamespace = "t"

	// keyHashLength is the number of base64 characters kept from the digest.
	// 6 characters carry about 36 bits; collisions are accepted, not handled.
	keyHashLength = 6
)

// analysisTablePattern matches transient, content-addressed analysis result
// tables (analysis_<10 hex>_<40 hex>).
var analysisTablePattern = regexp.MustCompile(`^analysis_[a-f0-9]{10}_[a-f0-9]{40}$`)

// SurrogateKey returns the purge key for t: "t:" followed by the first six
// characters of the standard base64 SHA-256 of "db:schema.table".
//
// Identifier quoting is hashed verbatim, so "sch-ema" with and without
// quotes yields different keys.
func SurrogateKey(t Table) string {
	return keyNamespace + ":" + shortHash(t.DBName+":"+t.QualifiedName())
}

// shortHash returns the truncated standard base64 SHA-256 digest of s.
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])[:keyHashLength]
}

// IsAnalysisTable reports whether name is a generated analysis table.
func IsAnalysisTable(name string) bool {
	return analysisTablePattern.MatchString(name)
}
