package service

import (
	"context"
	"errors"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
)

var ErrForbidden = errors.New("admin access only")

type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
}

// AdminPolicy пускает только пользователя с логином Login.
// Пустой Login закрывает административные операции для всех.
type AdminPolicy struct {
	Users UserLookup
	Login string
}

func NewAdminPolicy(users UserLookup, login string) *AdminPolicy {
	return &AdminPolicy{Users: users, Login: login}
}

func (p *AdminPolicy) Check(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrUnauthenticated
	}
	if p == nil || p.Login == "" {
		return ErrForbidden
	}
	user, err := p.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	}
	if user.Login != p.Login {
		return ErrForbidden
	}
	return nil
}
