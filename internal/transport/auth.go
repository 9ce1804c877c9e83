package transport

import "net/http"

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	Apply(req *http.Request)
}

// NoAuth represents no authentication.
type NoAuth struct{}

func (a NoAuth) Apply(req *http.Request) {}

// BearerToken uses Bearer token authentication.
type BearerToken struct {
	Token string
}

// Apply adds Bearer token header to the request.
func (a BearerToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}
