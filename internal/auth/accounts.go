package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
)

// AccountStore persists local accounts.
type AccountStore interface {
	Create(account *models.Account) error
	Get(id string) (*models.Account, error)
	GetByUsername(username string) (*models.Account, error)
	Update(account *models.Account) error
}

// AccountService handles signup, login and linking accounts to Spotify users.
type AccountService struct {
	accounts AccountStore
	logger   *log.Logger
}

// NewAccountService creates an [AccountService] backed by accounts.
func NewAccountService(accounts AccountStore, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Default()
	}
	return &AccountService{accounts: accounts, logger: logger}
}

// Signup creates an unlinked account. Usernames are trimmed and must be unique.
func (s *AccountService) Signup(username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d to %d characters", shared.ErrInvalidInput, MinUsernameLength, MaxUsernameLength)
	}

	_, err := s.accounts.GetByUsername(username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: username %q is taken", shared.ErrInvalidInput, username)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("look up account: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(username, hash)
	if err := s.accounts.Create(account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created", "account", account.ID(), "username", username)
	return account, nil
}

// Authenticate returns the account for username when password matches.
//
// Unknown usernames and wrong passwords both return [shared.ErrInvalidCredentials].
func (s *AccountService) Authenticate(username, password string) (*models.Account, error) {
	account, err := s.accounts.GetByUsername(strings.TrimSpace(username))
	if errors.Is(err, shared.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}

	if err := VerifyPassword(account.PasswordHash(), password); err != nil {
		s.logger.Debug("login rejected", "username", account.Username())
		return nil, err
	}
	return account, nil
}

// Link attaches the Spotify user userID to the account.
func (s *AccountService) Link(accountID, userID string) (*models.Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	account, err := s.accounts.Get(accountID)
	if err != nil {
		return nil, err
	}

	account.SetUserID(userID)
	if err := s.accounts.Update(account); err != nil {
		return nil, fmt.Errorf("link account: %w", err)
	}

	s.logger.Info("account linked", "account", accountID, "user", userID)
	return account, nil
}

func (s *AccountService) Get(id string) (*models.Account, error) {
	return s.accounts.Get(id)
}
