package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/goevery/carwash-notify/internal/ierr"
	"github.com/golang-jwt/jwt/v5"
)

// Claims accepts both the standard subject and the userId claim issued by
// the mobile API.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId,omitempty"`
}

type Authentication struct {
	Subject string
	IsAdmin bool
}

type contextKey string

const authenticationKey contextKey = "authentication"

func WithAuthentication(ctx context.Context, auth *Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey, auth)
}

func AuthenticationFromContext(ctx context.Context) (*Authentication, bool) {
	auth, ok := ctx.Value(authenticationKey).(*Authentication)
	return auth, ok
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	jwtParser *jwt.Parser
}

// NewAuthenticator verifies HS256 tokens signed with secret. The audience is
// only enforced when non-empty.
func NewAuthenticator(secret string, audience string, apiKeys []string) *Authenticator {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}

	if audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(audience))
	}

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		jwtParser: jwt.NewParser(parserOptions...),
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

func (a *Authenticator) AuthenticateJWT(tokenString string) (*Authentication, error) {
	if tokenString == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("token required"))
	}

	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject := claims.UserID
	if subject == "" {
		subject, err = claims.GetSubject()
		if err != nil {
			return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
		}
	}

	if subject == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("token carries no user identity"))
	}

	return &Authentication{
		Subject: subject,
		IsAdmin: false,
	}, nil
}

// RequiresAPIKey reports whether API keys were configured at all.
func (a *Authenticator) RequiresAPIKey() bool {
	return len(a.apiKeys) > 0
}

func (a *Authenticator) AuthenticateAPIKey(apiKey string) (*Authentication, error) {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return &Authentication{
				Subject: "api",
				IsAdmin: true,
			}, nil
		}
	}

	return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
