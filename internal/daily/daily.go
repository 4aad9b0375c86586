// internal/daily/daily.go
//
// Daily challenge helpers.
// Every player gets the same first round on a given UTC date. The round is
// drawn from a math/rand source seeded with HMAC(salt, YYYY-MM-DD), so the
// selection is reproducible but not guessable without the salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed derives a deterministic seed for a date from HMAC(salt, DateKey(t)).
func Seed(t time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

// Source returns the seeded random source for a date. The returned value is
// not safe for concurrent use; each session gets its own.
func Source(t time.Time, salt string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(t, salt)))
}
