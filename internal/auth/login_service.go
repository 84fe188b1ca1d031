package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/utils/crypto"
)

// Login failure modes. Handlers map these onto the login form messages.
var (
	ErrUnknownUser = errors.New("unknown user")
	ErrBadPassword = errors.New("bad password")
)

// LoginResult is a successful login.
type LoginResult struct {
	User        *models.User
	Token       string
	TokenExpiry time.Time
}

// LoginService validates credentials and issues session tokens.
type LoginService struct {
	accounts *accounts.Repository
	tokens   *TokenService
}

func NewLoginService(accounts *accounts.Repository, tokens *TokenService) *LoginService {
	return &LoginService{accounts: accounts, tokens: tokens}
}

// Login verifies the credentials and returns a signed session token.
func (s *LoginService) Login(username, password string) (*LoginResult, error) {
	user, err := s.accounts.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := crypto.ComparePasswordAndHash(password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("password comparison failed: %w", err)
	}
	if !ok {
		return nil, ErrBadPassword
	}

	token, expiry, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{User: user, Token: token, TokenExpiry: expiry}, nil
}
