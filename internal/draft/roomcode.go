// internal/draft/roomcode.go
package draft

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet deliberately omits 0/O and 1/I so codes survive being read
// aloud or scribbled on a whiteboard.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a room code.
const CodeLength = 6

// GenerateCode returns a random shareable room code. Uniqueness is enforced
// at insert time by the store, not here.
func GenerateCode() string {
	buf := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}

// ValidCode reports whether s is shaped like a room code.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		found := false
		for j := 0; j < len(codeAlphabet); j++ {
			if s[i] == codeAlphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
