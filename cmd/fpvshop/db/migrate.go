package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			login TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			order_number TEXT UNIQUE NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'cancelled')),
			amount NUMERIC(14, 2) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS orders_user_status_created_idx ON orders (user_id, status, created_at);
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS spin_records (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'paid')),
			idempotency_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS spin_records_user_created_idx ON spin_records (user_id, created_at);
		CREATE UNIQUE INDEX IF NOT EXISTS spin_records_user_key_idx ON spin_records (user_id, idempotency_key) WHERE idempotency_key <> '';
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price NUMERIC(14, 2) NOT NULL CHECK (price > 0),
			mrp NUMERIC(14, 2) NOT NULL DEFAULT 0,
			category TEXT NOT NULL,
			platform TEXT NOT NULL,
			url TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS products_category_idx ON products (category, created_at);
		CREATE TABLE IF NOT EXISTS favourites (
			user_id BIGINT NOT NULL REFERENCES users(id),
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, product_id)
		);
	`)
	if err != nil {
		return err
	}
	return nil
}
