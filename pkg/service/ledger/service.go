// Package ledger holds the authoritative roster of pre-approved credentials.
package ledger

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/internal/util"
	"github.com/praxy-health/zkid-service/pkg/service/framework"
)

// ErrCredentialNotFound covers both an unknown credential id and a name mismatch.
// The two cases are deliberately indistinguishable to the caller.
var ErrCredentialNotFound = errors.New("credential not found")

type Service struct {
	config config.LedgerServiceConfig
	// keyed by upper-cased credential id
	credentials map[string]Credential
}

func (s *Service) Type() framework.Type {
	return framework.Ledger
}

func (s *Service) Status() framework.Status {
	if len(s.credentials) == 0 {
		return framework.Status{
			Status:  framework.StatusNotReady,
			Message: "credential roster is empty",
		}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewLedgerService(cfg config.LedgerServiceConfig) (*Service, error) {
	if cfg.CredentialFile == "" {
		return nil, errors.New("ledger requires a credential file")
	}
	file, err := os.ReadFile(cfg.CredentialFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading credential roster: %s", cfg.CredentialFile)
	}

	var roster []Credential
	if err = json.Unmarshal(file, &roster); err != nil {
		return nil, errors.Wrapf(err, "parsing credential roster: %s", cfg.CredentialFile)
	}

	credentials := make(map[string]Credential, len(roster))
	for _, credential := range roster {
		if credential.CredentialID == "" {
			return nil, errors.Errorf("credential roster entry missing id: %+v", credential)
		}
		id := normalize(credential.CredentialID)
		if _, present := credentials[id]; present {
			return nil, errors.Errorf("duplicate credential id in roster: %s", credential.CredentialID)
		}
		credentials[id] = credential
	}

	logrus.Infof("loaded %d credentials from roster %s", len(credentials), cfg.CredentialFile)
	return &Service{config: cfg, credentials: credentials}, nil
}

// VerifyCredential matches id and names case-insensitively against the roster.
// A name mismatch returns the same error as an unknown id to avoid partial-match
// leakage.
func (s *Service) VerifyCredential(credentialID, givenName, familyName string) (*Credential, error) {
	credential, ok := s.credentials[normalize(credentialID)]
	if !ok {
		return nil, loggedNotFound(credentialID)
	}
	if normalize(credential.GivenName) != normalize(givenName) ||
		normalize(credential.FamilyName) != normalize(familyName) {
		return nil, loggedNotFound(credentialID)
	}
	return &credential, nil
}

// Size returns the number of roster entries, for diagnostics.
func (s *Service) Size() int {
	return len(s.credentials)
}

// loggedNotFound records the rejection for audit without recording which check failed.
func loggedNotFound(credentialID string) error {
	logrus.WithField("credential_id", util.SanitizeLog(credentialID)).Info("credential verification rejected")
	return errors.Wrap(ErrCredentialNotFound, fmt.Sprintf("credential: %s", credentialID))
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
