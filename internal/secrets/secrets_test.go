package secrets

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	bundle, err := GenerateBundle()
	require.NoError(t, err)

	dir := t.TempDir()
	path := dir + "/secrets.enc"
	pass := []byte("correct horse battery staple")

	require.NoError(t, Seal(path, pass, bundle))

	opened, err := Open(path, pass)
	require.NoError(t, err)
	require.Equal(t, bundle.IdentitySeed, opened.IdentitySeed)
	require.Equal(t, bundle.LedgerKey, opened.LedgerKey)
}

func TestOpenWrongPassphraseFails(t *testing.T) {
	bundle, err := GenerateBundle()
	require.NoError(t, err)

	dir := t.TempDir()
	path := dir + "/secrets.enc"
	require.NoError(t, Seal(path, []byte("right"), bundle))

	_, err = Open(path, []byte("wrong"))
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpenRejectsCorruptMagic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/secrets.enc"
	require.NoError(t, os.WriteFile(path, []byte("NOTREAL-this-is-too-short"), 0o600))

	_, err := Open(path, []byte("pass"))
	require.Error(t, err)
}
