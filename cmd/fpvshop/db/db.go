package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	// ErrCommitUnknown - коммит не подтверждён, запись могла как сохраниться, так и нет.
	ErrCommitUnknown = errors.New("commit outcome unknown")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func Init(databaseURI string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", databaseURI)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return conn, nil
}

func isUniqueViolation(err error) bool {
	return hasPgCode(err, uniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasPgCode(err, foreignKeyViolation)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
