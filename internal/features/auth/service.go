package auth

import (
	"context"
	"errors"

	"go-sitter/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Register(ctx context.Context, username, password, email string) (*User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type ServiceImpl struct {
	Users UserRepository
}

func NewService(users UserRepository) Service {
	return &ServiceImpl{Users: users}
}

func (s *ServiceImpl) Register(ctx context.Context, username, password, email string) (*User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	existing, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Roles:    []string{"staff"},
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return utils.GenerateToken(user.ID, user.Roles)
}
