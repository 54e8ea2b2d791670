package ledger

// Credential is one row of the pre-approved roster. Immutable reference data,
// loaded once at process start.
type Credential struct {
	CredentialID string `json:"credentialId"`
	GivenName    string `json:"givenName"`
	FamilyName   string `json:"familyName"`
}
