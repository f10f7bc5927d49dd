package providers

import (
	"context"
	"fmt"
	"strings"
)

var _ AuthProvider = &LocalAuthProvider{}

// LocalAuthProvider accepts tokens of the form "uid:name" without any
// verification. It is meant for local development only.
type LocalAuthProvider struct{}

func NewLocalAuthProvider() *LocalAuthProvider {
	return &LocalAuthProvider{}
}

func (p *LocalAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	uid, name, ok := strings.Cut(idToken, ":")
	if !ok {
		name = uid
	}
	if uid == "" {
		return nil, fmt.Errorf("empty token")
	}
	return &TokenClaims{
		UID:  uid,
		Name: name,
	}, nil
}
