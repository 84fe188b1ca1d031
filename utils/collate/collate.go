// Package collate produces the comparison keys used for the application's
// uniqueness constraints. Usernames, gallery names and image names are unique
// under Polish-locale, case-insensitive comparison, so the database indexes
// are built over these keys rather than over the raw strings.
package collate

import (
	"encoding/hex"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// IgnoreCase keeps diacritic distinctions while folding letter case, matching
// collation strength 2. A Collator is not safe for concurrent use, hence the
// mutex.
var (
	mu       sync.Mutex
	collator = collate.New(language.Polish, collate.IgnoreCase)
)

// Key returns a stable, hex-encoded collation key for s. Two strings that are
// equal under the locale comparison yield identical keys.
func Key(s string) string {
	mu.Lock()
	defer mu.Unlock()
	var buf collate.Buffer
	return hex.EncodeToString(collator.KeyFromString(&buf, s))
}
