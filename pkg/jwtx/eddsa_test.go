package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestEdDSASignAndVerify(t *testing.T) {
	signer, err := jwtx.GenerateEdDSA("test-key-eddsa")
	require.NoError(t, err)
	require.Equal(t, "EdDSA", signer.Alg())
	require.Equal(t, "test-key-eddsa", signer.KID())

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-456",
		"company-1",
		"admin",
		"eddsauser",
		[]string{"pwd"},
		5*time.Minute,
		exampleIssuer,
		now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verifier := jwtx.NewVerifierEdDSA(signer, exampleIssuer)
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-456", got.Subject)
	require.Equal(t, "company-1", got.CompanyID)
	require.Equal(t, "admin", got.Role)
	require.Equal(t, []string{"pwd"}, got.AMR)

	t.Run("rejects other keys", func(t *testing.T) {
		other, err := jwtx.GenerateEdDSA("test-key-eddsa")
		require.NoError(t, err)
		_, err = jwtx.NewVerifierEdDSA(other, exampleIssuer).Verify(token)
		require.Error(t, err)
	})

	t.Run("rejects wrong issuer", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(signer, "other").Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("rejects expired", func(t *testing.T) {
		old := jwtx.NewAccessClaims("u", "c", "admin", "u", nil, time.Minute, exampleIssuer, now.Add(-time.Hour))
		tok, err := signer.Sign(old)
		require.NoError(t, err)
		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}
