package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

// sessionAssertion binds v4.local tokens to the session cookie, so a token
// minted for another purpose with the same key does not decrypt here.
var sessionAssertion = []byte("meet-os session cookie")

// PasetoService encrypts session tokens with PASETO v4.local
// (XChaCha20-Poly1305). The subject is the user's email.
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

var _ TokenService = (*PasetoService)(nil)

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{symmetricKey: key, now: time.Now}, nil
}

func (s *PasetoService) CreateToken(email string, duration time.Duration) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(email)
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(duration))

	return token.V4Encrypt(s.symmetricKey, sessionAssertion), nil
}

func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	// expiry is checked by hand to tell ErrExpiredToken apart
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, sessionAssertion)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetSubject()
	if err != nil || email == "" {
		return nil, ErrInvalidToken
	}
	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}
	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	return &TokenClaims{Email: email, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}
