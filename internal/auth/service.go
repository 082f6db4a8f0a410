// Package auth registers players and issues the tokens the API trusts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

// DefaultTokenTTL is how long a login stays valid.
const DefaultTokenTTL = 24 * time.Hour

const minPasswordLen = 6

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// Welcomer is told about new accounts after they commit.
type Welcomer interface {
	Welcome(ctx context.Context, a domain.Account) error
}

// Claims is the token body.
type Claims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	store    store.Store
	welcomer Welcomer
	secret   []byte
	ttl      time.Duration
	cost     int
	log      *slog.Logger
	now      func() time.Time
}

func NewService(st store.Store, welcomer Welcomer, secret string, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		store:    st,
		welcomer: welcomer,
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		log:      logger,
		now:      time.Now,
	}
}

// RegisterInput is what a new player supplies.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) validate() error {
	if !usernamePattern.MatchString(in.Username) {
		return domain.Invalid("username", "must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return domain.Invalid("email", "%q is not a valid address", in.Email)
	}
	if len(in.Password) < minPasswordLen {
		return domain.Invalid("password", "must be at least %d characters", minPasswordLen)
	}
	return nil
}

// Register creates a player account with a zero balance. A taken username or
// email fails with domain.ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return domain.Account{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	a := domain.Account{
		ID:             uuid.NewString(),
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   string(hashed),
		Role:           domain.RolePlayer,
		TotalDeposited: decimal.Zero,
		CreatedAt:      s.now().UTC(),
	}
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, a)
	})
	if errors.Is(err, domain.ErrConflict) {
		return domain.Account{}, fmt.Errorf("username or email: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.Account{}, err
	}

	s.log.Info("account registered", "account_id", a.ID, "username", a.Username)
	if s.welcomer != nil {
		if err := s.welcomer.Welcome(ctx, a); err != nil {
			s.log.Warn("welcome notification failed", "account_id", a.ID, "error", err)
		}
	}
	return a, nil
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, domain.Account, error) {
	a, err := s.store.AccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return "", time.Time{}, domain.Account{}, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return "", time.Time{}, domain.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, domain.Account{}, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	token, exp, err := s.Issue(a)
	if err != nil {
		return "", time.Time{}, domain.Account{}, err
	}
	return token, exp, a, nil
}

// Issue signs a token for a.
func (s *Service) Issue(a domain.Account) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify resolves a token to the identity it was issued for.
func (s *Service) Verify(tokenStr string) (domain.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.AccountID == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no account", domain.ErrUnauthorized)
	}
	return domain.Identity{AccountID: claims.AccountID, Username: claims.Username, Role: claims.Role}, nil
}

// PromoteAdmin grants the operator role. Tokens issued before the change
// keep their old role until they expire.
func (s *Service) PromoteAdmin(ctx context.Context, username string) error {
	if username == "" {
		return domain.Invalid("username", "required")
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.SetRole(ctx, username, domain.RoleAdmin)
	})
	if err != nil {
		return err
	}
	s.log.Info("account promoted", "username", username, "role", domain.RoleAdmin)
	return nil
}
