package app

import (
	"bytes"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	orderNumberAlphabet  = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
	orderNumberSuffixLen = 6
	// Bytes at or above this value would bias the alphabet's first letters.
	orderNumberByteLimit = 256 - 256%len(orderNumberAlphabet)
)

func newID() string {
	return uuid.NewString()
}

// newOrderNumber returns a human-traceable number such as
// ORD-20250301091500-7KQ2MX. Uniqueness is probabilistic.
func newOrderNumber(now time.Time) string {
	suffix, err := orderNumberSuffix(rand.Reader)
	if err != nil {
		var seed bytes.Buffer
		for i := 0; i < 4; i++ {
			id := uuid.New()
			seed.Write(id[:])
		}
		suffix, _ = orderNumberSuffix(&seed)
	}
	return "ORD-" + now.UTC().Format("20060102150405") + "-" + suffix
}

// orderNumberSuffix draws letters uniformly from the alphabet, discarding
// bytes that do not map evenly onto it.
func orderNumberSuffix(r io.Reader) (string, error) {
	out := make([]byte, 0, orderNumberSuffixLen)
	buf := make([]byte, orderNumberSuffixLen)
	for len(out) < orderNumberSuffixLen {
		n, err := r.Read(buf[:orderNumberSuffixLen-len(out)])
		for _, b := range buf[:n] {
			if int(b) < orderNumberByteLimit {
				out = append(out, orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
			}
		}
		if err != nil && len(out) < orderNumberSuffixLen {
			return "", err
		}
	}
	return string(out), nil
}
