package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/mailer"
)

// ProfileInput is what a patron may change on their own account.
type ProfileInput struct {
	FirstName string `json:"first_name" form:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=100"`
	Phone     string `json:"phone" form:"phone" validate:"max=30"`
}

// UserPatch is the back-office edit of an account.
type UserPatch struct {
	Email     string            `json:"email" form:"email" validate:"required,email,max=254"`
	FirstName string            `json:"first_name" form:"first_name" validate:"max=100"`
	LastName  string            `json:"last_name" form:"last_name" validate:"max=100"`
	Phone     string            `json:"phone" form:"phone" validate:"max=30"`
	Role      entities.UserRole `json:"role" form:"role" validate:"required,oneof=user admin"`
}

// TemporaryPassword is a generated password, shown to the administrator once.
type TemporaryPassword struct {
	User     *entities.User `json:"user"`
	Password string         `json:"password"`
}

// AccountService covers profile edits and the back-office account actions.
type AccountService struct {
	auth     *auth.Service
	users    *users.Repository
	tokens   *auth.ResetTokens
	sender   mailer.Sender
	composer *mailer.Composer
	validate *validator.Validate
}

func NewAccountService(
	authService *auth.Service,
	userRepo *users.Repository,
	tokens *auth.ResetTokens,
	sender mailer.Sender,
	composer *mailer.Composer,
) *AccountService {
	return &AccountService{
		auth:     authService,
		users:    userRepo,
		tokens:   tokens,
		sender:   sender,
		composer: composer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *AccountService) Get(id uint) (*entities.User, error) {
	return s.users.GetUserByID(id)
}

func (s *AccountService) List(q string, limit, offset int) ([]entities.User, int64, error) {
	return s.users.ListUsers(q, limit, offset)
}

// Create opens an account from the back-office.
func (s *AccountService) Create(in auth.NewUser) (*entities.User, error) {
	return s.auth.CreateUser(in)
}

// UpdateProfile saves a patron's own names and phone.
func (s *AccountService) UpdateProfile(userID uint, in ProfileInput) (*entities.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	user.FirstName, user.LastName, user.Phone = in.FirstName, in.LastName, in.Phone
	if err := s.users.UpdateProfile(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AccountService) ChangePassword(userID uint, current, next string) error {
	return s.auth.ChangePassword(userID, current, next)
}

// Update edits an account from the back-office. An administrator cannot
// demote themselves.
func (s *AccountService) Update(actor *entities.User, id uint, in UserPatch) (*entities.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == user.ID && in.Role != user.Role {
		return nil, ErrForbidden
	}
	if in.Email != user.Email {
		other, err := s.users.GetUserByEmail(in.Email)
		if err == nil && other.ID != user.ID {
			return nil, auth.ErrUserExists
		}
		if err != nil && !isNotFound(err) {
			return nil, err
		}
	}

	user.Email = in.Email
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Phone = strings.TrimSpace(in.Phone)
	user.Role = in.Role
	if err := s.users.UpdateProfile(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Toggle flips the verification flag. Unverified accounts cannot log in,
// so an administrator may not toggle their own account.
func (s *AccountService) Toggle(actor *entities.User, id uint) (*entities.User, error) {
	if actor != nil && actor.ID == id {
		return nil, ErrForbidden
	}
	user, err := s.users.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetVerified(id, !user.IsVerified); err != nil {
		return nil, fmt.Errorf("failed to toggle user: %w", err)
	}
	user.IsVerified = !user.IsVerified
	return user, nil
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *AccountService) Delete(actor *entities.User, id uint) (*entities.User, error) {
	if actor != nil && actor.ID == id {
		return nil, ErrForbidden
	}
	user, err := s.users.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.users.DeleteUser(id); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return user, nil
}

// SendResetPassword mails a password reset link. The link is the only
// output: a mail failure is returned as warn.
func (s *AccountService) SendResetPassword(ctx context.Context, id uint) (user *entities.User, warn error, err error) {
	user, err = s.users.GetUserByID(id)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign reset token: %w", err)
	}
	msg, err := s.composer.PasswordReset(user, token, s.tokens.TTL())
	if err != nil {
		return user, err, nil
	}
	return user, s.sender.Send(ctx, msg), nil
}

// SetTemporaryPassword replaces the password with a generated one and
// returns it so the administrator can pass it on. When notify is set the
// password is also mailed to the user; a mail failure is returned as warn.
func (s *AccountService) SetTemporaryPassword(ctx context.Context, id uint, notify bool) (tmp *TemporaryPassword, warn error, err error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		return nil, nil, err
	}
	password, err := auth.GenerateTemporaryPassword()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate password: %w", err)
	}
	if err := s.auth.SetPassword(user, password); err != nil {
		return nil, nil, err
	}
	tmp = &TemporaryPassword{User: user, Password: password}

	if !notify {
		return tmp, nil, nil
	}
	msg, err := s.composer.TemporaryPassword(user, password)
	if err != nil {
		return tmp, err, nil
	}
	return tmp, s.sender.Send(ctx, msg), nil
}
