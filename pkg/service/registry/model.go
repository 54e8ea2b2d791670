package registry

import "github.com/praxy-health/zkid-service/pkg/service/ledger"

// LinkedCredential binds one approved credential to exactly one anonymous identity
// commitment. Never mutated in place; deleted only by explicit revocation.
type LinkedCredential struct {
	ledger.Credential
	// Commitment is the identity commitment as a decimal string.
	Commitment string `json:"commitment"`
	LinkedAt   string `json:"linkedAt"`
}
