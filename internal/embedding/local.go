package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"github.com/synapsedb/mnemosyne/internal/vecmath"
)

// LocalProvider is a deterministic, offline embedding provider: it hashes
// each word of the input into a fixed-dimension vector.
// It is not semantically meaningful the way a trained model's output is,
// but it is stable (same text always yields the same vector) and gives the
// engine something to run against without a model server, which is what
// the test suite and the offline fallback need.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider returns a provider emitting dimension-length vectors.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 128
	}
	return &LocalProvider{dimension: dimension}
}

func (p *LocalProvider) Dimension() int { return p.dimension }

func (p *LocalProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, p.dimension)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{""}
	}

	for _, w := range words {
		sum := sha256.Sum256([]byte(w))
		for i := 0; i < p.dimension; i++ {
			byteIdx := i % len(sum)
			shift := uint(8 * (i % 4))
			bucket := binary.BigEndian.Uint32(rotate(sum[:], byteIdx))
			vec[i] += float64((bucket>>shift)&0xFF) - 127.5
		}
	}

	return vecmath.Normalize(vec), nil
}

// rotate returns a 4-byte window of b starting at offset, wrapping around.
func rotate(b []byte, offset int) []byte {
	out := make([]byte, 4)
	for i := 0; i < 4; i++ {
		out[i] = b[(offset+i)%len(b)]
	}
	return out
}
