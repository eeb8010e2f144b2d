package main

// Identity is an enrolled X.509 credential stored in the wallet.
// Re-enrollment overwrites the whole record; last write wins.
type Identity struct {
	Label       string `json:"label"`
	Certificate []byte `json:"certificate"`
	PrivateKey  []byte `json:"privateKey"`
	MSPID       string `json:"mspId"`
	Type        string `json:"type"` // always "X.509"
}

// Enrollment is what the CA hands back for an enrollment call.
type Enrollment struct {
	Certificate []byte
	PrivateKey  []byte
}

// RegistrationRequest describes a CA registration performed by an admin.
type RegistrationRequest struct {
	EnrollmentID     string
	EnrollmentSecret string
	Role             string
	Affiliation      string
}

// Poll as reported by the ledger. The ledger owns poll state; this service
// never caches it beyond a single request.
type Poll struct {
	ID      string   `json:"ID"`
	Title   string   `json:"Title"`
	Options []string `json:"Options,omitempty"`
	Status  string   `json:"Status,omitempty"` // "open" or "closed"
	Creator string   `json:"Creator,omitempty"`
}

// TokenClaims is the verified content of an access or refresh token.
type TokenClaims struct {
	Subject string
	Role    string // "admin" or "voter"
}

const (
	RoleAdmin = "admin"
	RoleVoter = "voter"
)
