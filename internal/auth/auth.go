// Package auth provides username/password authentication and JWT bearer
// tokens for the API.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/marketing-reports/internal/model"
)

// ErrInvalidCredentials covers unknown users and wrong passwords alike,
// so callers cannot distinguish the two.
var ErrInvalidCredentials = eris.New("invalid username or password")

// UserStore looks up and verifies users.
type UserStore interface {
	Authenticate(username, password string) (*model.User, error)
}

// StaticUserStore holds a fixed user set with bcrypt password hashes.
type StaticUserStore struct {
	users map[string]staticUser
}

type staticUser struct {
	user model.User
	hash []byte
}

// NewStaticUserStore creates an empty store.
func NewStaticUserStore() *StaticUserStore {
	return &StaticUserStore{users: map[string]staticUser{}}
}

// AddUser hashes the password and registers the user.
func (s *StaticUserStore) AddUser(u model.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return eris.Wrap(err, "auth: hash password")
	}
	s.users[u.Username] = staticUser{user: u, hash: hash}
	return nil
}

// Authenticate checks the password for the named user.
func (s *StaticUserStore) Authenticate(username, password string) (*model.User, error) {
	entry, ok := s.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(entry.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	u := entry.user
	return &u, nil
}

// Claims are the token payload: subject is the username.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A zero ttl defaults to 24 hours.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(u *model.User) (string, error) {
	now := t.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// Verify parses and validates a token, returning the embedded user. The
// role defaults to "user" when the claim is absent.
func (t *TokenIssuer) Verify(token string) (*model.User, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("auth: unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, eris.Wrap(err, "auth: parse token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, eris.New("auth: invalid token")
	}

	role := claims.Role
	if role == "" {
		role = "user"
	}
	return &model.User{Username: claims.Subject, Role: role}, nil
}

// TokenTTL reports the configured token lifetime.
func (t *TokenIssuer) TokenTTL() time.Duration {
	return t.ttl
}
