package service

import (
	"context"
	"errors"
	"strings"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"golang.org/x/crypto/bcrypt"
)

type UserRepo interface {
	CreateUser(ctx context.Context, login, passwordHash string) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

type TokenIssuer interface {
	GenerateJWT(userID int64) (string, error)
}

type UserService struct {
	UserRepo UserRepo
	Tokens   TokenIssuer
}

var (
	ErrUserExists      = errors.New("login already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid login/password pair")
	ErrInvalidRequest  = errors.New("invalid request format")
)

func NewUserService(repo UserRepo, tokens TokenIssuer) *UserService {
	return &UserService{UserRepo: repo, Tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return "", ErrInvalidRequest
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	userID, err := s.UserRepo.CreateUser(ctx, req.Login, string(hash))
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return "", ErrUserExists
		}
		return "", err
	}
	return s.Tokens.GenerateJWT(userID)
}

func (s *UserService) Login(ctx context.Context, req models.RegisterRequest) (string, error) {
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return "", ErrInvalidRequest
	}
	user, err := s.UserRepo.GetUserByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", ErrInvalidPassword
	}
	return s.Tokens.GenerateJWT(user.ID)
}
