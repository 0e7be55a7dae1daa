package models

type PrincipalKind string

const (
	KindAdmin PrincipalKind = "admin"
	KindVoter PrincipalKind = "voter"
)

// Principal is the authenticated identity of a request: an admin account
// (ID is the admin email) or a voter session (ID is the voterId). It is set
// once by the auth middleware and threaded explicitly; handlers never branch
// on loose request fields.
type Principal struct {
	Kind PrincipalKind
	ID   string
}
