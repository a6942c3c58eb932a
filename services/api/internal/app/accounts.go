package app

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"legalgen/internal/util"
	"legalgen/pkg/auth"
	"legalgen/pkg/domain"
	"legalgen/pkg/mail"
	"legalgen/pkg/store"
)

// msgUserExists is the single problem reported when registering a taken email.
const msgUserExists = "User already exists!"

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Organization   string
	ContactDetails string
}

// ProfileInput carries editable profile fields.
type ProfileInput struct {
	Email          string
	FirstName      string
	LastName       string
	Organization   string
	ContactDetails string
}

// LoginResult is a freshly issued access token.
type LoginResult struct {
	Token   string
	Expires time.Time
	User    domain.User
}

// ResetPasswordInput carries a password reset request.
type ResetPasswordInput struct {
	Email           string
	Token           string
	Password        string
	ConfirmPassword string
}

// ChangePasswordInput carries an authenticated password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validEmail(email string) bool {
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (p *problems) profile(in ProfileInput) {
	p.add(in.Email != "", "The Email field is required.")
	p.add(in.Email == "" || validEmail(in.Email), "The Email field is not a valid e-mail address.")
	p.add(strings.TrimSpace(in.FirstName) != "", "The FirstName field is required.")
	p.add(strings.TrimSpace(in.LastName) != "", "The LastName field is required.")
	p.add(strings.TrimSpace(in.Organization) != "", "The Organization field is required.")
	p.add(strings.TrimSpace(in.ContactDetails) != "", "The ContactDetails field is required.")
}

// Register creates an account. Nothing is stored unless every check passes.
func (a *App) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	var errs problems
	errs.profile(ProfileInput{
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Organization:   in.Organization,
		ContactDetails: in.ContactDetails,
	})
	if in.Password == "" {
		errs = append(errs, "The Password field is required.")
	} else {
		errs = append(errs, auth.PasswordProblems(in.Password)...)
	}
	if err := errs.err(); err != nil {
		return domain.User{}, err
	}

	if _, exists, err := a.store.GetUserByEmail(ctx, in.Email); err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	} else if exists {
		return domain.User{}, invalid(msgUserExists)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := a.now()
	user := domain.User{
		ID:             util.NewID(),
		Email:          in.Email,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Organization:   strings.TrimSpace(in.Organization),
		ContactDetails: strings.TrimSpace(in.ContactDetails),
		PasswordHash:   hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return domain.User{}, invalid(msgUserExists)
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues an access token.
func (a *App) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, expires, err := a.sessions.NewSession(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}
	return LoginResult{Token: token, Expires: expires, User: user}, nil
}

// UserFromToken resolves the user behind an access token.
func (a *App) UserFromToken(ctx context.Context, token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(ctx, uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// Logout revokes the presented token until it expires.
func (a *App) Logout(token string) error {
	if err := a.sessions.DeleteSession(token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ForgotPassword issues a single-use reset token and emails it.
func (a *App) ForgotPassword(ctx context.Context, email string) error {
	user, ok, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	token, err := a.resetTokens.Issue(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	msg, err := mail.ResetPasswordMessage(user.Email, user.FirstName, token, a.resetPasswordURL, a.resetTTL)
	if err != nil {
		return err
	}
	if err := a.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password. Tokens issued
// before the reset stop working.
func (a *App) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := newPasswordProblems(in.Password, in.ConfirmPassword); err != nil {
		return err
	}
	if strings.TrimSpace(in.Token) == "" {
		return invalid("The Token field is required.")
	}
	user, ok, err := a.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	valid, err := a.resetTokens.Consume(ctx, user.ID, strings.TrimSpace(in.Token))
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !valid {
		return ErrInvalidResetToken
	}
	return a.setPassword(ctx, user, in.Password)
}

// ChangePassword replaces the caller's password after checking the current one.
func (a *App) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if in.CurrentPassword == "" {
		return invalid("The CurrentPassword field is required.")
	}
	if err := newPasswordProblems(in.NewPassword, in.ConfirmPassword); err != nil {
		return err
	}
	user, err := a.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(in.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return a.setPassword(ctx, user, in.NewPassword)
}

func newPasswordProblems(password, confirm string) error {
	if password != confirm {
		return &ValidationError{Problems: []string{ErrPasswordMismatch.Error()}, cause: ErrPasswordMismatch}
	}
	if password == "" {
		return invalid("The Password field is required.")
	}
	if p := auth.PasswordProblems(password); len(p) > 0 {
		return invalid(p...)
	}
	return nil
}

func (a *App) setPassword(ctx context.Context, user domain.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := a.now()
	user.PasswordHash = hash
	user.UpdatedAt = now
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if revoker, ok := a.sessions.(store.UserSessionRevoker); ok {
		if err := revoker.RevokeUserSessions(user.ID, now); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	msg, err := mail.PasswordChangedMessage(user.Email, user.FirstName, now)
	if err == nil {
		err = a.mailer.Send(ctx, msg)
	}
	if err != nil {
		// the password is already changed; the notice is best effort
		a.logger.WarnContext(ctx, "password change notice failed", "user_id", user.ID, "err", err)
	}
	return nil
}

// Profile returns the caller's account.
func (a *App) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile replaces the caller's profile fields.
func (a *App) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	var errs problems
	errs.profile(in)
	if err := errs.err(); err != nil {
		return domain.User{}, err
	}
	user, err := a.Profile(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.Email = in.Email
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Organization = strings.TrimSpace(in.Organization)
	user.ContactDetails = strings.TrimSpace(in.ContactDetails)
	user.UpdatedAt = a.now()
	if err := a.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return domain.User{}, invalid("Email is already in use.")
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
