package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"go.uber.org/zap"
)

type ProductRepo interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	AddFavourite(ctx context.Context, userID, productID int64) error
	RemoveFavourite(ctx context.Context, userID, productID int64) error
	ListFavourites(ctx context.Context, userID int64) ([]models.Product, error)
}

// DealMinDiscount - скидка в процентах, с которой товар попадает в раздел сделок.
const DealMinDiscount = 40

// allCategories - категория-заглушка, которая не фильтрует каталог.
const allCategories = "all"

var (
	ErrInvalidProduct  = errors.New("name, positive price, category, platform and http(s) url are required")
	ErrProductNotFound = errors.New("product not found")
)

type CatalogService struct {
	Repo     ProductRepo
	Admin    *AdminPolicy
	Logger   *zap.Logger
}

func NewCatalogService(products ProductRepo, admin *AdminPolicy, logger *zap.Logger) *CatalogService {
	return &CatalogService{Repo: products, Admin: admin, Logger: logger}
}

// CreateProduct добавляет товар в каталог. Доступно только администратору.
func (s *CatalogService) CreateProduct(ctx context.Context, userID int64, req models.ProductRequest) (*models.Product, error) {
	if err := s.Admin.Check(ctx, userID); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price.Round(2),
		MRP:      req.MRP.Round(2),
		Category: strings.ToLower(strings.TrimSpace(req.Category)),
		Platform: strings.ToLower(strings.TrimSpace(req.Platform)),
		URL:      strings.TrimSpace(req.URL),
		Image:    strings.TrimSpace(req.Image),
	}
	if p.Name == "" || !p.Price.IsPositive() || p.MRP.IsNegative() || p.Category == "" || p.Platform == "" || !isHTTPURL(p.URL) {
		return nil, ErrInvalidProduct
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.Logger.Info("product created", zap.Int64("product_id", p.ID), zap.String("category", p.Category))
	return p, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *CatalogService) Product(ctx context.Context, productID int64) (*models.Product, error) {
	p, err := s.Repo.GetProductByID(ctx, productID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// Products возвращает каталог, новые товары первыми. Категория "all" не фильтрует.
func (s *CatalogService) Products(ctx context.Context, category, query string) ([]models.Product, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == allCategories {
		category = ""
	}
	return s.Repo.ListProducts(ctx, models.ProductFilter{Category: category, Query: strings.TrimSpace(query)})
}

// Deals - товары со скидкой не меньше DealMinDiscount процентов.
func (s *CatalogService) Deals(ctx context.Context) ([]models.Product, error) {
	all, err := s.Repo.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return nil, err
	}
	var deals []models.Product
	for _, p := range all {
		if d, ok := p.Discount(); ok && d >= DealMinDiscount {
			deals = append(deals, p)
		}
	}
	return deals, nil
}

func (s *CatalogService) AddFavourite(ctx context.Context, userID, productID int64) error {
	if userID <= 0 {
		return ErrUnauthenticated
	}
	err := s.Repo.AddFavourite(ctx, userID, productID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}

func (s *CatalogService) RemoveFavourite(ctx context.Context, userID, productID int64) error {
	if userID <= 0 {
		return ErrUnauthenticated
	}
	return s.Repo.RemoveFavourite(ctx, userID, productID)
}

func (s *CatalogService) Favourites(ctx context.Context, userID int64) ([]models.Product, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	return s.Repo.ListFavourites(ctx, userID)
}
