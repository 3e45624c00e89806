package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/domain"
)

// Gate rejections. Both map to the same unauthorized response.
var (
	ErrNoCredential      = errors.New("auth: no credential")
	ErrInvalidCredential = errors.New("auth: invalid credential")
)

// Gate verifies session credentials. It holds no mutable state and is safe
// for concurrent use.
type Gate struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewGate builds a gate around an already-validated token manager.
func NewGate(tokens *TokenManager, logger *zap.Logger) (*Gate, error) {
	if tokens == nil {
		return nil, ErrMissingSecret
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger.Named("identity_gate")}, nil
}

// Verify returns the identity carried by credential, or ErrNoCredential /
// ErrInvalidCredential. The precise failure is logged only.
func (g *Gate) Verify(credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, ErrNoCredential
	}

	claims, err := g.tokens.ParseToken(credential)
	if err != nil {
		reason := rejectionReason(err)
		if reason == "signature" {
			g.logger.Warn("credential rejected", zap.String("reason", reason), zap.Error(err))
		} else {
			g.logger.Debug("credential rejected", zap.String("reason", reason), zap.Error(err))
		}
		return domain.Identity{}, ErrInvalidCredential
	}

	return domain.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not_yet_valid"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	case errors.Is(err, errInvalidClaims), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "claims"
	default:
		return "invalid"
	}
}
