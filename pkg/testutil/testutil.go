// Package testutil provides shared fixtures for service and server tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/pkg/service/ledger"
	"github.com/praxy-health/zkid-service/pkg/service/registry"
	"github.com/praxy-health/zkid-service/pkg/storage"
)

// Roster is the credential fixture used across tests.
const Roster = `[
	{"credentialId": "MN-118951", "givenName": "Claudia", "familyName": "Gutierrez"},
	{"credentialId": "CA-220042", "givenName": "Marcus", "familyName": "Webb"},
	{"credentialId": "NY-774410", "givenName": "Priya", "familyName": "Raman"}
]`

func NewTestLedger(t *testing.T) *ledger.Service {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(Roster), 0600))
	service, err := ledger.NewLedgerService(config.LedgerServiceConfig{CredentialFile: path})
	require.NoError(t, err)
	return service
}

func NewTestRegistry(t *testing.T, db storage.ServiceStorage) *registry.Service {
	if db == nil {
		db = storage.NewMemoryDB()
	}
	service, err := registry.NewRegistryService(NewTestLedger(t), db)
	require.NoError(t, err)
	return service
}
