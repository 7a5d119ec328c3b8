package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rastreobus/rastreobus/pkg/util"
)

const TokenLifetime = 2 * time.Hour

const defaultSigningSecret = "rastreobus-dev-secret"

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims bind a token to one driver and one vehicle plate. The hub trusts
// Plate as the only vehicle the connection may report for.
type Claims struct {
	Email string `json:"email"`
	Plate string `json:"plate"`

	jwt.RegisteredClaims
}

// SigningSecret reads the HS256 secret from the environment, with a
// development fallback.
func SigningSecret() []byte {
	env := util.GetEnvironmentVariables()

	if env["RASTREOBUS_JWT_SECRET"] != "" {
		return []byte(env["RASTREOBUS_JWT_SECRET"])
	}

	return []byte(defaultSigningSecret)
}

func Sign(driver fleet.Driver, secret []byte, now time.Time) (string, error) {
	claims := Claims{
		Email: driver.Email,
		Plate: driver.Plate,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   driver.PrimaryIdentifier,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func Parse(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}

		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.Plate == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
