package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is the issuer claim stamped on every access token.
	Issuer = "studyhall"
	// KeyID is the key identifier attached to the token header so
	// secret rotation can be handled without breaking old tokens.
	KeyID = "v1"
	// AccessTokenDuration is how long a freshly issued token is valid.
	AccessTokenDuration = 7 * 24 * time.Hour
)

type contextKey int

// UserIDContextKey carries the authenticated user's ID through request
// contexts once the bearer token has been verified.
const UserIDContextKey contextKey = iota

// ClaimsMessage is the payload of a StudyHall access token.
type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues a signed token for the given user.
func GenerateAccessToken(username string, userID int32, expirationTime time.Time, secret []byte) (string, error) {
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Audience: jwt.ClaimStrings{"user.access-token"},
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Subject:  fmt.Sprint(userID),
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Name:             username,
		RegisteredClaims: registeredClaims,
	})
	token.Header["kid"] = KeyID

	return token.SignedString(secret)
}

// Authenticate verifies a bearer token and returns its claims. The
// authHeader is the raw Authorization header value; an empty header or
// a non-bearer scheme yields an error.
func Authenticate(authHeader, secret string) (*ClaimsMessage, error) {
	token := extractBearerToken(authHeader)
	if token == "" {
		return nil, fmt.Errorf("missing access token")
	}

	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, fmt.Errorf("unexpected key id: %v", t.Header["kid"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return claims, nil
}

// UserID returns the user ID encoded in the token subject.
func (c *ClaimsMessage) UserID() (int32, error) {
	var id int32
	if _, err := fmt.Sscanf(c.Subject, "%d", &id); err != nil {
		return 0, fmt.Errorf("malformed token subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// SetUserIDInContext stores the authenticated user ID in the context.
func SetUserIDInContext(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext extracts the authenticated user ID, if present.
func UserIDFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(UserIDContextKey).(int32)
	return id, ok
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
