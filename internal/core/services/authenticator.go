package services

import (
	"strings"

	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
)

// Authenticator transforme un bearer token en AuthContext.
// Il n'échoue jamais : token absent, mal formé, expiré ou mal signé => anonyme.
type Authenticator struct {
	tokens ports.TokenProvider
}

func NewAuthenticator(tokens ports.TokenProvider) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) Authenticate(token string) domain.AuthContext {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Anonymous()
	}

	claims, err := a.tokens.Validate(token)
	if err != nil || claims == nil || claims.UserID == "" {
		return domain.Anonymous()
	}
	return domain.Authenticated(claims.UserID)
}

// AuthenticateHeader accepte la valeur brute du header Authorization ("Bearer <token>").
// Tout autre format donne un contexte anonyme.
func (a *Authenticator) AuthenticateHeader(header string) domain.AuthContext {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return domain.Anonymous()
	}
	return a.Authenticate(token)
}
