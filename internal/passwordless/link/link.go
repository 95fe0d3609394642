// Package link issues and verifies single-use passwordless sign-in links.
//
// A link is the configured continue URL with two query parameters:
// mode=signIn and oobCode=<HS256 JWT>. The token subject is the email the
// link was requested for and its jti is consumed on first successful use.
package link

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"escrowgate/internal/sentinel"
	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/requestcontext"
)

const (
	ParamMode  = "mode"
	ParamCode  = "oobCode"
	ModeSignIn = "signIn"

	DefaultTTL    = time.Hour
	DefaultIssuer = "escrowgate"
)

// Verification failure messages. Callers display these verbatim and select
// UI variants from their wording.
const (
	MsgInvalidLink   = "Invalid sign-in link"
	MsgExpiredLink   = "The sign-in link has expired"
	MsgEmailMismatch = "The email address does not match the sign-in link"
	MsgLinkConsumed  = "Invalid sign-in link: it has already been used"
)

// Claims carried by an oobCode. Subject is the normalized email.
type Claims struct {
	jwt.RegisteredClaims
}

// UsedTokenStore records consumed token IDs. MarkUsed returns
// sentinel.ErrAlreadyUsed when jti was consumed before.
type UsedTokenStore interface {
	MarkUsed(ctx context.Context, jti string, expiresAt time.Time) error
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithUsedTokenStore(store UsedTokenStore) Option {
	return func(s *Service) {
		if store != nil {
			s.used = store
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

type Service struct {
	signingKey  []byte
	continueURL *url.URL
	ttl         time.Duration
	issuer      string
	used        UsedTokenStore
}

func New(signingKey, continueURL string, opts ...Option) (*Service, error) {
	if signingKey == "" {
		return nil, errors.New("link signing key is required")
	}
	u, err := url.Parse(continueURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("link continue URL must be absolute")
	}
	s := &Service{
		signingKey:  []byte(signingKey),
		continueURL: u,
		ttl:         DefaultTTL,
		issuer:      DefaultIssuer,
		used:        NewMemoryUsedTokens(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue returns a sign-in link for email valid for the configured TTL.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	now := requestcontext.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign link")
	}

	u := *s.continueURL
	q := u.Query()
	q.Set(ParamMode, ModeSignIn)
	q.Set(ParamCode, signed)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// IsSignInWithEmailLink reports whether rawURL has the shape of a sign-in
// link carrying a well-formed token. Signature and expiry are checked by
// VerifyPasswordlessLink.
func (s *Service) IsSignInWithEmailLink(rawURL string) bool {
	code, ok := OOBCode(rawURL)
	if !ok {
		return false
	}
	claims := new(Claims)
	if _, _, err := jwt.NewParser().ParseUnverified(code, claims); err != nil {
		return false
	}
	return claims.Subject != "" && claims.ID != ""
}

// VerifyPasswordlessLink checks that rawURL is a link this service issued
// for email, that it has not expired and that it has not been used. The
// link is consumed on success.
func (s *Service) VerifyPasswordlessLink(ctx context.Context, email, rawURL string) error {
	code, ok := OOBCode(rawURL)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidLink, MsgInvalidLink)
	}

	now := requestcontext.Now(ctx)
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(code, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.Wrap(err, dErrors.CodeExpiredLink, MsgExpiredLink)
		}
		return dErrors.Wrap(err, dErrors.CodeInvalidLink, MsgInvalidLink)
	}
	if claims.ID == "" {
		return dErrors.New(dErrors.CodeInvalidLink, MsgInvalidLink)
	}

	if NormalizeEmail(email) != claims.Subject {
		return dErrors.New(dErrors.CodeEmailMismatch, MsgEmailMismatch)
	}

	if err := s.used.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Wrap(err, dErrors.CodeLinkConsumed, MsgLinkConsumed)
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "sign-in link store unavailable")
	}
	return nil
}

// OOBCode extracts the token from a sign-in link.
func OOBCode(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	q := u.Query()
	if q.Get(ParamMode) != ModeSignIn {
		return "", false
	}
	code := q.Get(ParamCode)
	return code, code != ""
}

// IsSignInLink is the structural check usable without the signing key.
func IsSignInLink(rawURL string) bool {
	code, ok := OOBCode(rawURL)
	return ok && strings.Count(code, ".") == 2
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
