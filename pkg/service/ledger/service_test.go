package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxy-health/zkid-service/config"
)

func writeRoster(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func testRoster(t *testing.T) *Service {
	path := writeRoster(t, `[
		{"credentialId": "MN-118951", "givenName": "Claudia", "familyName": "Gutierrez"},
		{"credentialId": "CA-220042", "givenName": "Marcus", "familyName": "Webb"}
	]`)
	service, err := NewLedgerService(config.LedgerServiceConfig{CredentialFile: path})
	require.NoError(t, err)
	require.NotEmpty(t, service)
	return service
}

func TestNewLedgerService(t *testing.T) {
	t.Run("missing file path", func(t *testing.T) {
		service, err := NewLedgerService(config.LedgerServiceConfig{})
		assert.Error(t, err)
		assert.Nil(t, service)
	})

	t.Run("missing file", func(t *testing.T) {
		service, err := NewLedgerService(config.LedgerServiceConfig{CredentialFile: "nope.json"})
		assert.Error(t, err)
		assert.Nil(t, service)
	})

	t.Run("bad json", func(t *testing.T) {
		path := writeRoster(t, `{"not": "a list"}`)
		service, err := NewLedgerService(config.LedgerServiceConfig{CredentialFile: path})
		assert.Error(t, err)
		assert.Nil(t, service)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		path := writeRoster(t, `[
			{"credentialId": "MN-1", "givenName": "A", "familyName": "B"},
			{"credentialId": "mn-1", "givenName": "C", "familyName": "D"}
		]`)
		service, err := NewLedgerService(config.LedgerServiceConfig{CredentialFile: path})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate credential id")
		assert.Nil(t, service)
	})

	t.Run("loads roster and reports ready", func(t *testing.T) {
		service := testRoster(t)
		assert.Equal(t, 2, service.Size())
		assert.True(t, service.Status().IsReady())
	})
}

func TestVerifyCredential(t *testing.T) {
	service := testRoster(t)

	t.Run("exact match", func(t *testing.T) {
		credential, err := service.VerifyCredential("MN-118951", "Claudia", "Gutierrez")
		assert.NoError(t, err)
		require.NotNil(t, credential)
		assert.Equal(t, "MN-118951", credential.CredentialID)
	})

	t.Run("match is case-insensitive", func(t *testing.T) {
		credential, err := service.VerifyCredential("mn-118951", "CLAUDIA", "gutierrez")
		assert.NoError(t, err)
		assert.NotNil(t, credential)
	})

	t.Run("unknown id", func(t *testing.T) {
		credential, err := service.VerifyCredential("XX-000000", "Claudia", "Gutierrez")
		assert.True(t, errors.Is(err, ErrCredentialNotFound))
		assert.Nil(t, credential)
	})

	t.Run("name mismatch is indistinguishable from unknown id", func(t *testing.T) {
		credential, err := service.VerifyCredential("MN-118951", "Claudia", "Wrong")
		assert.True(t, errors.Is(err, ErrCredentialNotFound))
		assert.Nil(t, credential)
	})
}
