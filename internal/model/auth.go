package model

// Permission scopes carried by access tokens. Doctors also receive the
// patient scope so they can exercise patient-facing endpoints.
const (
	ScopeDoctor  = "doctor"
	ScopePatient = "patient"
)

// SubjectKind identifies what kind of account a token subject belongs to.
type SubjectKind string

const (
	SubjectDoctor  SubjectKind = "doctor"
	SubjectPatient SubjectKind = "patient"
)

// AuthSubject is the authenticated identity resolved from credentials.
type AuthSubject struct {
	ID     string
	Kind   SubjectKind
	Scopes []string
}

// TokenRequest is the form-encoded body of POST /token.
type TokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResponse is the bearer token envelope.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
