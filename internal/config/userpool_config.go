package config

// UserPoolConfig describes the hosted user pool the admin area authenticates
// against. The pool is an external service; only its endpoints and the admin
// group name are configurable here.
type UserPoolConfig interface {
	GetUserPoolClientID() string
	GetUserPoolClientSecret() string
	GetUserPoolEndpoint() string
	GetUserPoolDomain() string
	GetUserPoolIssuer() string
	GetAdminGroup() string
}

type UserPool struct{}

var _ UserPoolConfig = UserPool{}

func (UserPool) GetUserPoolClientID() string {
	return GetEnv("USER_POOL_CLIENT_ID", "")
}

func (UserPool) GetUserPoolClientSecret() string {
	return GetEnv("USER_POOL_CLIENT_SECRET", "")
}

// GetUserPoolEndpoint is the pool's native credential-exchange API.
func (UserPool) GetUserPoolEndpoint() string {
	return GetEnv("USER_POOL_ENDPOINT", "https://cognito-idp.ap-south-1.amazonaws.com/")
}

// GetUserPoolDomain is the hosted domain carrying the pool's OAuth2 token
// endpoint, used for refresh-token exchanges.
func (UserPool) GetUserPoolDomain() string {
	return GetEnv("USER_POOL_DOMAIN", "")
}

// GetUserPoolIssuer enables ID-token verification against the pool's JWKS
// when set. Empty disables verification.
func (UserPool) GetUserPoolIssuer() string {
	return GetEnv("USER_POOL_ISSUER", "")
}

func (UserPool) GetAdminGroup() string {
	return GetEnv("ADMIN_GROUP", "admin")
}
