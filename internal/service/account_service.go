package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"familyquest/internal/credentials"
	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/repository"
	"familyquest/internal/security"
	"familyquest/internal/validation"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/adventurer/svg"

// ChildRegistration is the input for a new child account. An empty
// Username gets a generated one.
type ChildRegistration struct {
	Username  string
	Password  string
	Name      string
	Age       int
	Interests []string
}

type ParentRegistration struct {
	Username string
	Password string
	Name     string
	Email    string
}

// Session is an issued bearer token together with its owner.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

// AccountService handles registration and authentication
type AccountService struct {
	accounts *repository.AccountRepository
	tokens   *security.TokenManager
	log      *logger.Logger
	now      func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(db database.Querier, tokens *security.TokenManager, log *logger.Logger) *AccountService {
	return &AccountService{
		accounts: repository.NewAccountRepository(db),
		tokens:   tokens,
		log:      log,
		now:      time.Now,
	}
}

// RegisterChild creates a child account
func (s *AccountService) RegisterChild(ctx context.Context, reg ChildRegistration) (*models.Account, error) {
	if err := validation.ValidateName(reg.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(reg.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateAge(reg.Age); err != nil {
		return nil, err
	}
	interests, err := validation.NormalizeInterests(reg.Interests)
	if err != nil {
		return nil, err
	}

	username := strings.ToLower(strings.TrimSpace(reg.Username))
	generated := username == ""
	if !generated {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(reg.Name),
		Role:         models.RoleChild,
		Age:          reg.Age,
		Interests:    interests,
		Level:        1,
	}

	// Generated names can collide, so retry a few times before giving up
	maxRetries := 1
	if generated {
		maxRetries = 10
	}
	for i := 0; i < maxRetries; i++ {
		if generated {
			if username, err = credentials.SuggestUsername(); err != nil {
				return nil, fmt.Errorf("failed to generate username: %w", err)
			}
		}
		account.Username = username
		account.Avatar = avatarURL(username)
		account.CreatedAt = s.now().UTC()

		err = s.accounts.Create(ctx, account)
		if err == nil {
			s.log.Info("child registered", "account_id", account.ID, "username", account.Username)
			return account, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create child: %w", err)
		}
	}
	return nil, ErrUsernameTaken
}

// RegisterParent creates a parent account
func (s *AccountService) RegisterParent(ctx context.Context, reg ParentRegistration) (*models.Account, error) {
	username := strings.ToLower(strings.TrimSpace(reg.Username))
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(reg.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(reg.Password); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(reg.Email)
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(reg.Name),
		Role:         models.RoleParent,
		Email:        email,
		Level:        1,
		Avatar:       avatarURL(username),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create parent: %w", err)
	}

	s.log.Info("parent registered", "account_id", account.ID, "username", account.Username)
	return account, nil
}

// Authenticate checks a username and password
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates an account and issues a bearer token
func (s *AccountService) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.Info("login", "account_id", account.ID, "role", account.Role)
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// AccountFromToken resolves a bearer token to its account. The role in the
// token must still match the stored account.
func (s *AccountService) AccountFromToken(ctx context.Context, token string) (*models.Account, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, err
	}
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, security.ErrInvalidToken
		}
		return nil, err
	}
	if account.Role != claims.Role {
		return nil, security.ErrInvalidToken
	}
	return account, nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// GetChild retrieves an account that must be a child
func (s *AccountService) GetChild(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if account == nil || !account.IsChild() {
		return nil, ErrChildNotFound
	}
	return account, nil
}

func avatarURL(seed string) string {
	return avatarBaseURL + "?seed=" + url.QueryEscape(seed)
}
