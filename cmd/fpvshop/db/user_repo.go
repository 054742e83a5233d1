package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
)

type UserRepoPG struct {
	db *sql.DB
}

func NewUserRepoPG(db *sql.DB) *UserRepoPG {
	return &UserRepoPG{db: db}
}

func (r *UserRepoPG) CreateUser(ctx context.Context, login, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`, login, passwordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("error creating user: %w", err)
	}
	return id, nil
}

func (r *UserRepoPG) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, `SELECT id, login, password_hash, created_at FROM users WHERE login=$1`, login).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return &u, nil
}

func (r *UserRepoPG) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, `SELECT id, login, password_hash, created_at FROM users WHERE id=$1`, userID).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return &u, nil
}
