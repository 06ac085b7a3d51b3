package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// light keeps the suite fast; the encoding is the same at any cost.
var light = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashPasswordEncoding(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
	require.Len(t, strings.Split(hash, "$"), 6)

	again, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salts should differ")
}

func TestVerifyPassword(t *testing.T) {
	for _, password := range []string{"", "   spaces   ", "pässwörd 🔒", strings.Repeat("a", 200)} {
		hash, err := HashPasswordWith(password, light)
		require.NoError(t, err)

		require.NoError(t, VerifyPassword(password, hash))
		require.ErrorIs(t, VerifyPassword(password+"x", hash), ErrMismatch)
	}
}

func TestVerifyPasswordHonoursStoredParams(t *testing.T) {
	hash, err := HashPasswordWith("difference", light)
	require.NoError(t, err)
	require.Contains(t, hash, "$m=1024,t=1,p=1$")

	p, salt, key, err := decodeHash(hash)
	require.NoError(t, err)
	require.Equal(t, light, p)
	require.Len(t, salt, 8)
	require.Len(t, key, 16)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for name, hash := range map[string]string{
		"empty":       "",
		"bcrypt":      "$2a$10$abcdefghijklmnopqrstuv",
		"argon2i":     "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"old version": "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5",
		"bad params":  "$argon2id$v=19$memory$c2FsdA$a2V5",
		"bad salt":    "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"no key":      "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, VerifyPassword("anything", hash), ErrMalformedHash)
		})
	}
}

func TestDecoyHash(t *testing.T) {
	require.Equal(t, DecoyHash(), DecoyHash())
	require.ErrorIs(t, VerifyPassword("", DecoyHash()), ErrMismatch)
}
