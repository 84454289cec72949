package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJoinCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateJoinCode()
		require.NoError(t, err)
		assert.Len(t, code, joinCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(joinCodeAlphabet, c), "unexpected character %q in %q", c, code)
		}
	}
}

func TestFallbackJoinCode(t *testing.T) {
	code := fallbackJoinCode()
	assert.Len(t, code, joinCodeLength)
	assert.Equal(t, strings.ToUpper(code), code)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(joinCodeAlphabet, c), "unexpected character %q in %q", c, code)
	}
}
