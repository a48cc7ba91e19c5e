package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"melodeck/internal/config"
)

// Authenticator decorates outgoing catalog requests with credentials
type Authenticator interface {
	Apply(ctx context.Context, req *resty.Request) error
}

// NewAuthenticator builds the authenticator for the configured method
func NewAuthenticator(cfg *config.CatalogConfig) (Authenticator, error) {
	if err := config.ValidateCatalogAuth(cfg); err != nil {
		return nil, err
	}

	switch cfg.AuthMethod {
	case config.AuthMethodAPIKey:
		return &apiKeyAuth{header: cfg.APIKeyHeader, key: cfg.APIKey}, nil
	case config.AuthMethodOAuth2:
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		return &oauth2Auth{source: cc.TokenSource(context.Background())}, nil
	case config.AuthMethodJWT:
		return &jwtAuth{
			secret:  []byte(cfg.JWTSecret),
			issuer:  cfg.JWTIssuer,
			subject: cfg.JWTSubject,
			ttl:     cfg.JWTTTL,
			now:     time.Now,
		}, nil
	default:
		return noAuth{}, nil
	}
}

type noAuth struct{}

func (noAuth) Apply(context.Context, *resty.Request) error { return nil }

type apiKeyAuth struct {
	header string
	key    string
}

func (a *apiKeyAuth) Apply(_ context.Context, req *resty.Request) error {
	header := a.header
	if header == "" {
		header = "X-API-Key"
	}
	req.SetHeader(header, a.key)
	return nil
}

// oauth2Auth uses the client credentials grant; the token source caches and refreshes
type oauth2Auth struct {
	source oauth2.TokenSource
}

func (a *oauth2Auth) Apply(_ context.Context, req *resty.Request) error {
	token, err := a.source.Token()
	if err != nil {
		return &APIError{Operation: "auth", Message: "failed to obtain OAuth2 token", Err: err}
	}
	req.SetAuthToken(token.AccessToken)
	return nil
}

// jwtAuth signs short-lived HS256 tokens and reuses them until shortly before expiry
type jwtAuth struct {
	secret  []byte
	issuer  string
	subject string
	ttl     time.Duration

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

func (a *jwtAuth) Apply(_ context.Context, req *resty.Request) error {
	token, err := a.current()
	if err != nil {
		return &APIError{Operation: "auth", Message: "failed to sign JWT", Err: err}
	}
	req.SetAuthToken(token)
	return nil
}

func (a *jwtAuth) current() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	// refresh once less than a tenth of the lifetime remains
	if a.token != "" && now.Add(a.ttl/10).Before(a.expiry) {
		return a.token, nil
	}

	expiry := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    a.issuer,
		Subject:   a.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	a.token = signed
	a.expiry = expiry
	return signed, nil
}
