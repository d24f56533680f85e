package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

const (
	DefaultTokenTTL = time.Hour
	issuer          = "cenackle-feed"
)

// UserClaims étend les claims standards JWT.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTProvider signe soit en HS256 (secret partagé), soit en RS256 (paire PEM).
type JWTProvider struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	ttl       time.Duration
	now       func() time.Time
}

// NewHMACProvider signe avec un secret partagé.
func NewHMACProvider(secret []byte, ttl time.Duration) (*JWTProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	return newProvider(jwt.SigningMethodHS256, secret, secret, ttl), nil
}

// NewRSAProvider charge les clés RSA depuis des PEM.
func NewRSAProvider(privateKeyPEM, publicKeyPEM []byte, ttl time.Duration) (*JWTProvider, error) {
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return NewRSAProviderFromKeys(privKey, pubKey, ttl), nil
}

func NewRSAProviderFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, ttl time.Duration) *JWTProvider {
	return newProvider(jwt.SigningMethodRS256, priv, pub, ttl)
}

func newProvider(method jwt.SigningMethod, signKey, verifyKey any, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTProvider{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Generate crée un access token ; pas de refresh token.
func (j *JWTProvider) Generate(user *domain.User) (string, time.Duration, error) {
	now := j.now()
	claims := UserClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.ID,
		},
	}

	token, err := jwt.NewWithClaims(j.method, claims).SignedString(j.signKey)
	if err != nil {
		return "", 0, err
	}
	return token, j.ttl, nil
}

// Validate vérifie signature, algorithme et expiration.
func (j *JWTProvider) Validate(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// L'algorithme doit être celui du provider (pas de "none", pas de bascule HS/RS)
		if token.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.verifyKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Claims{UserID: userID, Email: claims.Email}, nil
}
