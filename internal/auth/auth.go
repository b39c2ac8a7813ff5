// Package auth resolves identities: account registration, password login,
// opaque session tokens, wallet linkage and admin tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ecorewards/internal/apperr"
	"ecorewards/internal/models"
)

const WelcomeBonusDescription = "Welcome bonus"

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SetWallet(ctx context.Context, id primitive.ObjectID, address string) error
}

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByTokenHash(ctx context.Context, hash string) (*models.Session, error)
	DeleteByTokenHash(ctx context.Context, hash string) error
}

// Credentials is shared by registration, login and admin login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type RegisterInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Credentials
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Profile
}

// Profile is the public view of a user.
type Profile struct {
	UserID           string      `json:"userId"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             models.Role `json:"role"`
	Points           int64       `json:"points"`
	LifetimePoints   int64       `json:"lifetimePoints"`
	Tier             models.Tier `json:"tier"`
	NextTier         models.Tier `json:"nextTier,omitempty"`
	PointsToNextTier int64       `json:"pointsToNextTier,omitempty"`
	WalletAddress    string      `json:"walletAddress,omitempty"`
}

func ProfileOf(user *models.User) Profile {
	p := Profile{
		UserID:         user.ID.Hex(),
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		Points:         user.Points,
		LifetimePoints: user.LifetimePoints,
		Tier:           user.Tier(),
		WalletAddress:  user.WalletAddress,
	}
	if next, missing, ok := models.NextTier(user.LifetimePoints); ok {
		p.NextTier = next
		p.PointsToNextTier = missing
	}
	return p
}

type Options struct {
	SessionTTL    time.Duration
	SignupBonus   int64
	JWTSecret     string
	AdminTokenTTL time.Duration
	BcryptCost    int
}

type Service struct {
	users    UserStore
	sessions SessionStore
	opts     Options
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewService(users UserStore, sessions SessionStore, opts Options, log *zap.Logger) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:    users,
		sessions: sessions,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.InvalidInput(describe(fieldErrs[0]))
		}
		return apperr.InvalidInput(err.Error())
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	}
	return field + " is invalid"
}

// Register creates the account with its welcome bonus already in the ledger,
// then logs in with the same credentials. A taken email is reported by the
// store's unique index.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperr.InvalidInput("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.opts.SignupBonus > 0 {
		user.Points = s.opts.SignupBonus
		user.LifetimePoints = s.opts.SignupBonus
		user.Activities = []models.Activity{{
			ID:          uuid.NewString(),
			Type:        models.ActivityBonus,
			Description: WelcomeBonusDescription,
			Delta:       s.opts.SignupBonus,
			CreatedAt:   now,
		}}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if !apperr.Expected(err) {
			s.log.Error("user register insert failed", zap.String("operation", "auth.register"), zap.Error(err))
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("userId", user.ID.Hex()))

	return s.Login(ctx, in.Credentials)
}

// authenticate checks credentials. Unknown email and wrong password are the
// same error.
func (s *Service) authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := s.check(creds); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, creds.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	user, err := s.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session := &models.Session{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(s.opts.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.log.Error("session insert failed", zap.String("userId", user.ID.Hex()), zap.Error(err))
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Profile:   ProfileOf(user),
	}, nil
}

// Logout ends the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByTokenHash(ctx, hashToken(token))
}

// ResolveSession maps a token to its user. A nil user with a nil error means
// the caller is unauthenticated; expired and orphaned sessions are deleted on
// the way.
func (s *Service) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	hash := hashToken(token)

	session, err := s.sessions.FindByTokenHash(ctx, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		return nil, s.evict(ctx, hash, "expired")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, s.evict(ctx, hash, "user missing")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) evict(ctx context.Context, hash, reason string) error {
	if err := s.sessions.DeleteByTokenHash(ctx, hash); err != nil {
		return err
	}
	s.log.Debug("session evicted", zap.String("reason", reason))
	return nil
}
