package service

import (
	"context"
	"errors"
	"testing"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/auth"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewManager("secret")
	svc := NewUserService(db.NewMemoryStore(), tokens)

	token, err := svc.Register(ctx, models.RegisterRequest{Login: " pilot ", Password: "fpv"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	registeredID, err := tokens.ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}

	token, err = svc.Login(ctx, models.RegisterRequest{Login: "pilot", Password: "fpv"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	loggedID, err := tokens.ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if registeredID != loggedID {
		t.Fatalf("user id mismatch: %d != %d", registeredID, loggedID)
	}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"duplicate login", func() error {
			_, err := svc.Register(ctx, models.RegisterRequest{Login: "pilot", Password: "x"})
			return err
		}, ErrUserExists},
		{"empty password", func() error {
			_, err := svc.Register(ctx, models.RegisterRequest{Login: "racer"})
			return err
		}, ErrInvalidRequest},
		{"unknown login", func() error {
			_, err := svc.Login(ctx, models.RegisterRequest{Login: "ghost", Password: "x"})
			return err
		}, ErrUserNotFound},
		{"wrong password", func() error {
			_, err := svc.Login(ctx, models.RegisterRequest{Login: "pilot", Password: "nope"})
			return err
		}, ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
