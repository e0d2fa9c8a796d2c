package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	t.Run("empty string stays empty", func(t *testing.T) {
		assert.Equal(t, "", MaskSecret(""))
		assert.Equal(t, "", MaskSecret("   "))
	})

	t.Run("short secrets are fully masked", func(t *testing.T) {
		assert.Equal(t, "***", MaskSecret("abc"))
		assert.Equal(t, "****", MaskSecret("abcd"))
	})

	t.Run("keeps last four characters", func(t *testing.T) {
		assert.Equal(t, "********3456", MaskSecret("abcdefgh3456"))
	})

	t.Run("handles multibyte secrets", func(t *testing.T) {
		masked := MaskSecret("токен1234")
		assert.Equal(t, "*****1234", masked)
	})
}

func TestPayloadHash(t *testing.T) {
	t.Run("is stable per payload", func(t *testing.T) {
		a := PayloadHash([]byte(`{"x":1}`))
		b := PayloadHash([]byte(`{"x":1}`))
		assert.Equal(t, a, b)
	})

	t.Run("differs for distinct payloads", func(t *testing.T) {
		assert.NotEqual(t, PayloadHash([]byte(`{"x":1}`)), PayloadHash([]byte(`{"x":2}`)))
	})

	t.Run("is 16 hex characters", func(t *testing.T) {
		assert.Len(t, PayloadHash([]byte("anything")), 16)
		assert.Regexp(t, `^[0-9a-f]{16}$`, PayloadHash([]byte("anything")))
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("secret", "secret"))
	assert.False(t, ConstantTimeEqual("secret", "Secret"))
	assert.False(t, ConstantTimeEqual("secret", ""))
}
