package routers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/auth"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	Login(ctx context.Context, req models.RegisterRequest) (string, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, orderNumber string, amount decimal.Decimal) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
}

type SpinService interface {
	Spin(ctx context.Context, userID int64, idempotencyKey string) (*service.SpinResult, error)
	Status(ctx context.Context, userID int64) (*service.Eligibility, error)
	History(ctx context.Context, userID int64) ([]models.SpinRecord, error)
}

type CatalogService interface {
	CreateProduct(ctx context.Context, userID int64, req models.ProductRequest) (*models.Product, error)
	Product(ctx context.Context, productID int64) (*models.Product, error)
	Products(ctx context.Context, category, query string) ([]models.Product, error)
	Deals(ctx context.Context) ([]models.Product, error)
	AddFavourite(ctx context.Context, userID, productID int64) error
	RemoveFavourite(ctx context.Context, userID, productID int64) error
	Favourites(ctx context.Context, userID int64) ([]models.Product, error)
}

type WalletService interface {
	Wallet(ctx context.Context, userID int64) (models.Wallet, error)
	ReviewSpin(ctx context.Context, adminID, spinID int64, status string) (*models.SpinRecord, error)
}

type Handler struct {
	UserService    UserService
	OrderService   OrderService
	SpinService    SpinService
	CatalogService CatalogService
	WalletService  WalletService
	Logger         *zap.Logger
}

func NewHandler(
	userService UserService,
	orderService OrderService,
	spinService SpinService,
	catalogService CatalogService,
	walletService WalletService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		UserService:    userService,
		OrderService:   orderService,
		SpinService:    spinService,
		CatalogService: catalogService,
		WalletService:  walletService,
		Logger:         logger,
	}
}

func (h *Handler) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "неверный формат запроса", http.StatusBadRequest)
			return
		}
		token, err := h.UserService.Register(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserExists):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, service.ErrInvalidRequest):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				h.Logger.Error("register failed", zap.Error(err))
				http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
			}
			return
		}
		setToken(w, token)
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "неверный формат запроса", http.StatusBadRequest)
			return
		}
		token, err := h.UserService.Login(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
				http.Error(w, service.ErrInvalidPassword.Error(), http.StatusUnauthorized)
			case errors.Is(err, service.ErrInvalidRequest):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				h.Logger.Error("login failed", zap.Error(err))
				http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
			}
			return
		}
		setToken(w, token)
		w.WriteHeader(http.StatusOK)
	}
}

func setToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.TokenTTL),
		HttpOnly: true,
	})
	w.Header().Set("Authorization", "Bearer "+token)
}

func (h *Handler) CreateOrderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		var req models.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "неверный формат запроса", http.StatusBadRequest)
			return
		}
		_, err := h.OrderService.CreateOrder(r.Context(), userID, req.Number, req.Amount)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidOrderFormat):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, service.ErrInvalidOrderNumber), errors.Is(err, service.ErrInvalidOrderAmount):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, service.ErrOrderAlreadyUploadedByUser):
				w.WriteHeader(http.StatusOK)
			case errors.Is(err, service.ErrOrderAlreadyUploadedByAnother):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				h.Logger.Error("create order failed", zap.Int64("user_id", userID), zap.Error(err))
				http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *Handler) GetOrdersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		orders, err := h.OrderService.GetOrdersByUserID(r.Context(), userID)
		if err != nil {
			h.Logger.Error("get orders failed", zap.Int64("user_id", userID), zap.Error(err))
			http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
			return
		}
		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		resp := make([]models.OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, models.OrderResponse{
				Number:     o.OrderNumber,
				Status:     o.Status,
				Amount:     o.Amount,
				UploadedAt: o.CreatedAt.Format(time.RFC3339),
			})
		}
		h.writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("error encoding response", zap.Error(err))
	}
}

func SetupRoutersWithLogger(h *Handler, tokens TokenParser, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(logger))
	r.Post("/api/user/register", h.RegisterHandler())
	r.Post("/api/user/login", h.LoginHandler())
	r.Get("/api/products", h.ListProductsHandler())
	r.Get("/api/products/deals", h.DealsHandler())
	r.Get("/api/products/{id}", h.GetProductHandler())
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))
		r.Post("/api/user/orders", h.CreateOrderHandler())
		r.Get("/api/user/orders", h.GetOrdersHandler())
		r.Post("/api/user/spin", h.SpinHandler())
		r.Get("/api/user/spin/status", h.SpinStatusHandler())
		r.Get("/api/user/spins", h.SpinHistoryHandler())
		r.Get("/api/user/wallet", h.WalletHandler())
		r.Get("/api/user/favourites", h.ListFavouritesHandler())
		r.Put("/api/user/favourites/{id}", h.AddFavouriteHandler())
		r.Delete("/api/user/favourites/{id}", h.RemoveFavouriteHandler())
		r.Post("/api/admin/products", h.CreateProductHandler())
		r.Post("/api/admin/spins/{id}/status", h.ReviewSpinHandler())
	})
	return r
}
