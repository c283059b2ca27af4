// internal/draft/roomcode_test.go
package draft

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := GenerateCode()
		assert.Len(t, code, CodeLength)
		assert.True(t, ValidCode(code), "generated code %q must validate", code)
		for _, c := range code {
			assert.NotContains(t, "0O1I", string(c), "ambiguous character in %q", code)
		}
		seen[code] = true
	}
	// 200 draws from a 32^6 space colliding would be remarkable.
	assert.Greater(t, len(seen), 195)
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("ABC234"))
	assert.False(t, ValidCode("abc234"), "lowercase is not in the alphabet")
	assert.False(t, ValidCode("AB0CDE"), "zero is excluded")
	assert.False(t, ValidCode("SHORT"))
	assert.False(t, ValidCode(strings.Repeat("A", 7)))
	assert.False(t, ValidCode(""))
}
