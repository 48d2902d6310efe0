package security

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type TokenClaims struct {
	UserID  string
	Role    string
	Exp     time.Time
	Issuer  string
	Subject string
}

func (c TokenClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
