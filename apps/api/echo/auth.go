package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/user"
)

const (
	contextTokenKey     = "userToken"
	contextPrincipalKey = "principal"
)

// newJWTConfig returns the JWT auth middleware config reading the token from lookup.
func newJWTConfig(conf *core.Config, lookup string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
		TokenLookup:   lookup,
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

func (c Claims) Principal() user.Principal {
	return user.Principal{ID: c.Subject, Username: c.Username, Role: c.Role}
}

func GetPrincipalClaims(conf *core.Config, p user.Principal) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: p.Username,
		Role:     p.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextPrincipal resolves the verified identity of the request.
func getContextPrincipal(ctx echo.Context, validate *validator.Validate) (user.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(user.Principal); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Principal{}, err
	}
	p := claims.Principal()
	if err = p.Validate(validate); err != nil {
		return user.Principal{}, errUnauthorized
	}
	ctx.Set(contextPrincipalKey, p)
	return p, nil
}
