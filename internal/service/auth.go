package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/logger"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/notify"
	"github.com/iliyamo/fest-registration/internal/otp"
	"github.com/iliyamo/fest-registration/internal/utils"
)

// AuthConfig carries token lifetimes and hashing cost.
type AuthConfig struct {
	Secret         string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AuthService issues identities and tokens. Students prove possession of a
// registered email or phone with a one-time code; staff use passwords.
type AuthService struct {
	Users        UserStore
	Tokens       TokenStore
	Participants ParticipantStore
	OTP          *otp.Issuer
	Mailer       notify.Notifier
	Config       AuthConfig
}

// TokenPair is an access token and the refresh token that can renew it.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Session is the result of a successful sign-in.
type Session struct {
	User         model.User
	Participants []model.Participant
	Tokens       TokenPair
}

// RequestCode emails a one-time code to the address of the first
// registration matching credential.
func (s *AuthService) RequestCode(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return apperr.Validation(apperr.MissingField, "credential is required")
	}
	matches, err := s.Participants.FindByCredential(ctx, credential)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no registration for credential: %w", apperr.ErrNotFound)
	}
	code, err := s.OTP.Issue(ctx, credential)
	if err != nil {
		return err
	}
	notify.Deliver(ctx, s.Mailer, notify.LoginCode(matches[0].Email, code, s.OTP.TTL()))
	return nil
}

// VerifyCode consumes the code issued for credential and signs the caller in.
func (s *AuthService) VerifyCode(ctx context.Context, credential, code string) (Session, error) {
	credential = strings.TrimSpace(credential)
	if err := s.OTP.Verify(ctx, credential, code); err != nil {
		return Session{}, err
	}
	return s.Resolve(ctx, credential)
}

// Resolve maps a credential to an account. The oldest matching registration
// decides: if it is already linked, that account is used, otherwise the
// student account keyed by its email is found or created. Unlinked
// registrations with that email are then linked and a token pair is issued.
// Calling it again yields the same account and links.
// Callers must have verified possession of the credential.
func (s *AuthService) Resolve(ctx context.Context, credential string) (Session, error) {
	ctx, span := tracer.Start(ctx, "auth.Resolve")
	defer span.End()

	matches, err := s.Participants.FindByCredential(ctx, strings.TrimSpace(credential))
	if err != nil {
		return Session{}, err
	}
	if len(matches) == 0 {
		return Session{}, fmt.Errorf("no registration for credential: %w", apperr.ErrNotFound)
	}
	first := matches[0]
	email := strings.ToLower(strings.TrimSpace(first.Email))

	user, err := s.identityFor(ctx, first)
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, fmt.Errorf("account disabled: %w", apperr.ErrUnauthorized)
	}
	if _, err := s.Participants.LinkUserByEmail(ctx, email, user.ID); err != nil {
		return Session{}, err
	}
	linked, err := s.Participants.ListByUser(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	tokens, err := s.issue(ctx, user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Participants: linked, Tokens: tokens}, nil
}

func (s *AuthService) identityFor(ctx context.Context, p model.Participant) (model.User, error) {
	if p.UserID != nil {
		u, err := s.Users.GetByID(ctx, *p.UserID)
		if !errors.Is(err, apperr.ErrNotFound) {
			return u, err
		}
	}
	return s.findOrCreateStudent(ctx, strings.ToLower(strings.TrimSpace(p.Email)))
}

func (s *AuthService) findOrCreateStudent(ctx context.Context, email string) (model.User, error) {
	u, err := s.Users.GetByUsername(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return model.User{}, err
	}
	// students never sign in with a password; store an unusable one
	secret, err := utils.RandomHex(32)
	if err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(secret, s.Config.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	_, err = s.Users.Create(ctx, model.User{
		Username:     email,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		IsActive:     true,
	})
	if err != nil && !errors.Is(err, apperr.ErrConflict) {
		return model.User{}, err
	}
	// on conflict a concurrent resolve created it first
	return s.Users.GetByUsername(ctx, email)
}

// Login authenticates staff with username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return Session{}, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if !u.IsActive || !u.IsStaff() || !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	tokens, err := s.issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair issued. Presenting the same token twice fails the second time.
func (s *AuthService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	h := utils.HashRefreshRaw(strings.TrimSpace(raw))
	uid, err := s.Tokens.ValidateRefresh(ctx, h)
	if errors.Is(err, apperr.ErrNotFound) {
		return TokenPair{}, fmt.Errorf("invalid refresh token: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.Users.GetByID(ctx, uid)
	if err != nil {
		return TokenPair{}, err
	}
	if !u.IsActive {
		return TokenPair{}, fmt.Errorf("account disabled: %w", apperr.ErrUnauthorized)
	}
	at, rt, err := s.newPair(u)
	if err != nil {
		return TokenPair{}, err
	}
	err = s.Tokens.Rotate(ctx, u.ID, h, utils.HashRefreshRaw(rt.Raw), rt.Exp)
	if errors.Is(err, apperr.ErrNotFound) {
		return TokenPair{}, fmt.Errorf("refresh token already used: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: at, Refresh: rt}, nil
}

// Logout revokes one refresh token, or all of the actor's tokens when raw
// is empty.
func (s *AuthService) Logout(ctx context.Context, actor Actor, raw string) error {
	if raw = strings.TrimSpace(raw); raw != "" {
		return s.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	}
	if !actor.Authenticated() {
		return apperr.ErrUnauthorized
	}
	return s.Tokens.RevokeAllForUser(ctx, actor.UserID)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, actor Actor) (model.User, error) {
	if !actor.Authenticated() {
		return model.User{}, apperr.ErrUnauthorized
	}
	return s.Users.GetByID(ctx, actor.UserID)
}

// NewUser describes an account created by an administrator.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateUser creates a staff account. It is used by the superuser API and by
// the create-admin command, which passes a superuser Actor of its own.
func (s *AuthService) CreateUser(ctx context.Context, actor Actor, in NewUser) (model.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.User{}, err
	}
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if in.Username == "" {
		return model.User{}, apperr.Validation(apperr.MissingField, "username is required")
	}
	if len(in.Password) < 8 {
		return model.User{}, apperr.Validation(apperr.InvalidInput, "password must be at least 8 characters")
	}
	switch in.Role {
	case model.RoleSuperuser, model.RoleCoordinator:
	case "":
		in.Role = model.RoleCoordinator
	default:
		return model.User{}, apperr.Validation(apperr.InvalidInput, "role must be SUPERUSER or COORDINATOR")
	}
	hash, err := utils.HashPassword(in.Password, s.Config.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	id, err := s.Users.Create(ctx, model.User{
		Username:     in.Username,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	})
	if err != nil {
		return model.User{}, err
	}
	logger.Infof("auth: created %s account %q (id %d)", in.Role, in.Username, id)
	return s.Users.GetByID(ctx, id)
}

// ListUsers is superuser only.
func (s *AuthService) ListUsers(ctx context.Context, actor Actor) ([]model.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.Users.List(ctx)
}

// ProvisionCoordinator creates a coordinator for an event created without
// one. The generated password is returned once and never stored in clear.
func (s *AuthService) ProvisionCoordinator(ctx context.Context, eventTitle string) (model.User, string, error) {
	suffix, err := utils.RandomHex(3)
	if err != nil {
		return model.User{}, "", err
	}
	username := "coord-" + slug(eventTitle) + "-" + suffix
	password, err := utils.RandomPassword(12)
	if err != nil {
		return model.User{}, "", err
	}
	hash, err := utils.HashPassword(password, s.Config.BcryptCost)
	if err != nil {
		return model.User{}, "", err
	}
	id, err := s.Users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleCoordinator,
		IsActive:     true,
	})
	if err != nil {
		return model.User{}, "", err
	}
	u, err := s.Users.GetByID(ctx, id)
	return u, password, err
}

func (s *AuthService) issue(ctx context.Context, u model.User) (TokenPair, error) {
	at, rt, err := s.newPair(u)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: at, Refresh: rt}, nil
}

func (s *AuthService) newPair(u model.User) (utils.AccessToken, utils.RefreshToken, error) {
	at, err := utils.NewAccessToken(s.Config.Secret, u.ID, u.Role, s.Config.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	rt, err := utils.NewRefreshToken(s.Config.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	return at, rt, nil
}

// slug keeps lower-case letters and digits, joining runs with '-'.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 24 {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "event"
	}
	return out
}
