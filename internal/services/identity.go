package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"creddit/internal/apperror"
	"creddit/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	minUsernameLength = 4
	minPasswordLength = 8
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type SessionStore interface {
	Get(ctx context.Context, sid string) (uint, bool, error)
	Set(ctx context.Context, sid string, userID uint) error
	Destroy(ctx context.Context, sid string) error
}

type ResetTokenStore interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Consume(ctx context.Context, token string) (uint, bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type MailSender interface {
	SendPasswordResetEmail(email, link string)
}

// Identity handles accounts and the session-to-user binding.
type Identity struct {
	users     UserRepository
	sessions  SessionStore
	tokens    ResetTokenStore
	hasher    PasswordHasher
	mail      MailSender
	clientURL string
	timeout   time.Duration
	log       *logrus.Logger

	dummyHash string // compared against when the user does not exist
}

func NewIdentity(users UserRepository, sessions SessionStore, tokens ResetTokenStore, hasher PasswordHasher, mail MailSender, clientURL string, timeout time.Duration, log *logrus.Logger) *Identity {
	dummy, err := hasher.Hash("creddit-no-such-user")
	if err != nil {
		log.WithError(err).Warn("could not prepare dummy password hash")
	}
	return &Identity{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		hasher:    hasher,
		mail:      mail,
		clientURL: strings.TrimSuffix(clientURL, "/"),
		timeout:   timeout,
		log:       log,
		dummyHash: dummy,
	}
}

// Register validates the input and creates the user.
func (s *Identity) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := validateRegister(username, email, password); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("username", "Username has already been claimed")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email", "Email is already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: email, Password: hash}
	// The lookups above race with concurrent registrations; the unique
	// index still decides.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login checks credentials. An identifier containing '@' is an email.
// Unknown users and wrong passwords fail the same way.
func (s *Identity) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		s.hasher.Verify(s.dummyHash, password)
		return nil, incorrectPassword()
	}
	if !s.hasher.Verify(user.Password, password) {
		return nil, incorrectPassword()
	}
	return user, nil
}

// Me returns the user for userID, or nil when there is none.
func (s *Identity) Me(ctx context.Context, userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// ForgotPassword mails a reset link if email belongs to a user. It never
// reveals whether it did.
func (s *Identity) ForgotPassword(ctx context.Context, email string) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.log.WithError(err).Error("forgot password: user lookup failed")
		}
		return
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		s.log.WithError(err).Error("forgot password: could not store reset token")
		return
	}
	s.mail.SendPasswordResetEmail(user.Email, s.clientURL+"/change-password/"+token)
}

// ChangePassword redeems a reset token and sets a new password.
func (s *Identity) ChangePassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return nil, apperror.ValidationFailed("newPassword", "Password must have at least 8 characters")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	userID, ok, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return nil, apperror.Unavailable("token store", err)
	}
	if !ok {
		return nil, apperror.ValidationFailed("token", "Token has expired. Request a new token.")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("token", "User no longer exists")
		}
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// NewSession binds a fresh session id to userID.
func (s *Identity) NewSession(ctx context.Context, userID uint) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	sid := uuid.NewString()
	if err := s.sessions.Set(ctx, sid, userID); err != nil {
		return "", apperror.Unavailable("session store", err)
	}
	return sid, nil
}

// CurrentUserID resolves sid to a user id, 0 if the session is unknown.
func (s *Identity) CurrentUserID(ctx context.Context, sid string) (uint, error) {
	if sid == "" {
		return 0, nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	id, ok, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return 0, apperror.Unavailable("session store", err)
	}
	if !ok {
		return 0, nil
	}
	return id, nil
}

func (s *Identity) EndSession(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sessions.Destroy(ctx, sid); err != nil {
		return apperror.Unavailable("session store", err)
	}
	return nil
}

func validateRegister(username, email, password string) error {
	if utf8.RuneCountInString(username) < minUsernameLength {
		return apperror.ValidationFailed("username", "Username must have at least 4 characters")
	}
	if !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "Email is invalid")
	}
	if strings.Contains(username, "@") {
		return apperror.ValidationFailed("username", "Username cannot have '@'")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperror.ValidationFailed("password", "Password must have at least 8 characters")
	}
	return nil
}

func incorrectPassword() error {
	return apperror.ValidationFailed("password", "Incorrect password")
}
