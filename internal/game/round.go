// internal/game/round.go
//
// Round selection: uniform sampling without replacement from the catalog.
//
// The pool starts as a copy of the catalog. Each step picks a uniformly
// random index of what is left and removes it, until the round is full or
// the pool is empty. A name that is already in the round (the catalog may
// repeat names) is discarded without filling a slot, so a round never holds
// the same identifier twice.

package game

import (
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/househunt/internal/catalog"
)

// Source yields uniformly distributed ints in [0, n).
// *math/rand.Rand satisfies it, which the daily mode uses for seeded rounds.
type Source interface {
	Intn(n int) int
}

// CryptoSource draws indexes from crypto/rand, or from Reader when set.
// A read failure is logged and that draw falls back to math/rand.
type CryptoSource struct {
	Reader io.Reader
}

// Intn returns a random int in [0, n). n must be > 0.
func (c CryptoSource) Intn(n int) int {
	r := c.Reader
	if r == nil {
		r = rand.Reader
	}
	nBig, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand draw failed, using math/rand")
		return mrand.Intn(n)
	}
	return int(nBig.Int64())
}

// SelectRound returns up to size distinct identifiers sampled from names.
// size < 0 is treated as 0; size larger than the catalog returns every
// distinct identifier in it.
func SelectRound(src Source, names []catalog.Identifier, size int) Round {
	if size < 0 {
		size = 0
	}
	if src == nil {
		src = CryptoSource{}
	}
	pool := make([]catalog.Identifier, len(names))
	copy(pool, names)

	out := make(Round, 0, min(size, len(pool)))
	seen := make(map[catalog.Identifier]struct{}, size)
	for len(out) < size && len(pool) > 0 {
		i := src.Intn(len(pool))
		id := pool[i]
		pool = append(pool[:i], pool[i+1:]...)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
