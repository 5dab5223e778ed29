package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOrderID returns a time-ordered, human-shareable order identifier.
// The timestamp prefix keeps identifiers sortable; the random suffix makes
// collisions within the same millisecond practically impossible.
func GenerateOrderID() string {
	now := time.Now().UTC()

	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// fallback: time-based entropy
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf(
		"ORD-%s-%03d-%04d",
		datePart,
		millis,
		n.Int64(),
	)
}
