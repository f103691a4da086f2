package lobby

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I) the way a
// player-facing invite code should (spec §4.4: "unique 6-char code").
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// maxCodeRetries bounds the collision-retry loop (spec §4.4: "up to 10
// retries").
const maxCodeRetries = 10

// generateCode returns a random codeLength-character invite code.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating lobby code: %w", err)
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
