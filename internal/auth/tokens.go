// Package auth issues and verifies the PASETO identity tokens callers present
// to the provisioning API.
package auth

import (
	"encoding/hex"
	"encoding/json/v2"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/eumtools/siteprov-server/internal/id"
)

const (
	tokenIssuer   = "siteprov-server"
	tokenAudience = "siteprov-client"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32 // 256 bits
	keyHexSize   = 64 // 32 bytes as hex string
)

// IdentityClaims are the claims carried by an identity token. The UPN keeps
// the directory form "i:0#.f|membership|user@tenant"; Username extracts the
// member after the last pipe.
type IdentityClaims struct {
	UPN string `json:"upn"`
	Jti string `json:"jti"`
}

// Username returns the username component of the UPN: the substring after
// the last "|", or the whole UPN when no separator is present.
func (c IdentityClaims) Username() string {
	if idx := strings.LastIndex(c.UPN, "|"); idx >= 0 {
		return c.UPN[idx+1:]
	}
	return c.UPN
}

// TokenService handles PASETO token generation and verification.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
}

// NewTokenService creates a token service from a hex-encoded 256-bit key.
func NewTokenService(keyHex string, duration time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{symmetricKey: key, duration: duration}, nil
}

// GenerateToken creates a PASETO v4.local token carrying the caller's UPN.
func (s *TokenService) GenerateToken(upn string) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(upn)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.duration))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("upn", upn)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken verifies a PASETO identity token and returns its claims.
func (s *TokenService) VerifyToken(tokenString string) (*IdentityClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims IdentityClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UPN == "" {
		return nil, fmt.Errorf("token missing upn claim")
	}

	return &claims, nil
}
