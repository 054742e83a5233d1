package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
)

const productColumns = `p.id, p.name, p.price, p.mrp, p.category, p.platform, p.url, p.image, p.created_at`

type ProductRepoPG struct {
	db *sql.DB
}

func NewProductRepoPG(db *sql.DB) *ProductRepoPG {
	return &ProductRepoPG{db: db}
}

func (r *ProductRepoPG) CreateProduct(ctx context.Context, p *models.Product) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, price, mrp, category, platform, url, image) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		p.Name, p.Price, p.MRP, p.Category, p.Platform, p.URL, p.Image,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating product: %w", err)
	}
	return nil
}

func (r *ProductRepoPG) GetProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	err := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.MRP, &p.Category, &p.Platform, &p.URL, &p.Image, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching product: %w", err)
	}
	return &p, nil
}

// ListProducts ищет подстроку запроса в названии, категории и платформе без учёта регистра.
func (r *ProductRepoPG) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products p
		WHERE ($1::text = '' OR p.category = $1)
		AND ($2::text = '' OR strpos(lower(p.name), lower($2)) > 0 OR strpos(lower(p.category), lower($2)) > 0 OR strpos(lower(p.platform), lower($2)) > 0)
		ORDER BY p.created_at DESC, p.id DESC`,
		f.Category, f.Query,
	)
}

func (r *ProductRepoPG) AddFavourite(ctx context.Context, userID, productID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favourites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, productID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("error adding favourite: %w", err)
	}
	return nil
}

func (r *ProductRepoPG) RemoveFavourite(ctx context.Context, userID, productID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favourites WHERE user_id=$1 AND product_id=$2`, userID, productID); err != nil {
		return fmt.Errorf("error removing favourite: %w", err)
	}
	return nil
}

func (r *ProductRepoPG) ListFavourites(ctx context.Context, userID int64) ([]models.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM favourites f JOIN products p ON p.id = f.product_id
		WHERE f.user_id=$1 ORDER BY f.created_at DESC, p.id DESC`,
		userID,
	)
}

func (r *ProductRepoPG) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching products: %w", err)
	}
	defer rows.Close()
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.MRP, &p.Category, &p.Platform, &p.URL, &p.Image, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over products: %w", err)
	}
	return products, nil
}
