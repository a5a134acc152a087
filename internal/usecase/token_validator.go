package usecase

import (
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/pkg/jwt"
	"calendar-assistant/internal/usecase/shared"
)

var ErrUnknownRole = errs.New("unknown role")

// TokenValidator turns a bearer token into the caller it was issued to.
type TokenValidator interface {
	ValidateToken(tokenString string) (shared.Caller, error)
}

type tokenValidatorImpl struct {
	jwtService *jwt.Service
}

func NewTokenValidator(jwtService *jwt.Service) TokenValidator {
	return &tokenValidatorImpl{
		jwtService: jwtService,
	}
}

func (t *tokenValidatorImpl) ValidateToken(tokenString string) (shared.Caller, error) {
	claims, err := t.jwtService.ValidateToken(tokenString)
	if err != nil {
		return shared.Caller{}, err
	}

	switch claims.Role {
	case shared.RoleMember, shared.RoleAdmin:
	default:
		return shared.Caller{}, errs.Wrapf(ErrUnknownRole, "role %q", claims.Role)
	}

	return shared.Caller{UserID: claims.UserID, Role: claims.Role}, nil
}
