package routers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) ListProductsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		products, err := h.CatalogService.Products(r.Context(), q.Get("category"), q.Get("q"))
		if err != nil {
			h.serviceError(w, "list products failed", err)
			return
		}
		h.writeJSON(w, http.StatusOK, productResponses(products))
	}
}

func (h *Handler) DealsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := h.CatalogService.Deals(r.Context())
		if err != nil {
			h.serviceError(w, "list deals failed", err)
			return
		}
		h.writeJSON(w, http.StatusOK, productResponses(products))
	}
}

func (h *Handler) GetProductHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := pathID(w, r)
		if !ok {
			return
		}
		p, err := h.CatalogService.Product(r.Context(), productID)
		if err != nil {
			h.serviceError(w, "get product failed", err)
			return
		}
		h.writeJSON(w, http.StatusOK, productResponse(*p))
	}
}

func (h *Handler) CreateProductHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		var req models.ProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "неверный формат запроса", http.StatusBadRequest)
			return
		}
		p, err := h.CatalogService.CreateProduct(r.Context(), userID, req)
		if err != nil {
			h.serviceError(w, "create product failed", err, zap.Int64("user_id", userID))
			return
		}
		h.writeJSON(w, http.StatusCreated, productResponse(*p))
	}
}

func (h *Handler) ListFavouritesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		products, err := h.CatalogService.Favourites(r.Context(), userID)
		if err != nil {
			h.serviceError(w, "list favourites failed", err, zap.Int64("user_id", userID))
			return
		}
		h.writeJSON(w, http.StatusOK, productResponses(products))
	}
}

func (h *Handler) AddFavouriteHandler() http.HandlerFunc {
	return h.favouriteHandler(func(r *http.Request, userID, productID int64) error {
		return h.CatalogService.AddFavourite(r.Context(), userID, productID)
	})
}

func (h *Handler) RemoveFavouriteHandler() http.HandlerFunc {
	return h.favouriteHandler(func(r *http.Request, userID, productID int64) error {
		return h.CatalogService.RemoveFavourite(r.Context(), userID, productID)
	})
}

// favouriteHandler: оба действия идемпотентны и отвечают 204.
func (h *Handler) favouriteHandler(apply func(r *http.Request, userID, productID int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		productID, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := apply(r, userID, productID); err != nil {
			h.serviceError(w, "update favourites failed", err, zap.Int64("user_id", userID), zap.Int64("product_id", productID))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// pathID разбирает {id} из пути и сам отвечает 400 на мусор.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "неверный идентификатор", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// serviceError переводит ошибки каталога и кошелька в HTTP-статусы.
func (h *Handler) serviceError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrInvalidProduct), errors.Is(err, service.ErrInvalidSpinStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrProductNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidSpinTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.Logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}

func productResponses(products []models.Product) []models.ProductResponse {
	resp := make([]models.ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse(p))
	}
	return resp
}

func productResponse(p models.Product) models.ProductResponse {
	discount, _ := p.Discount()
	return models.ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		MRP:       p.MRP,
		Discount:  discount,
		Category:  p.Category,
		Platform:  p.Platform,
		URL:       p.URL,
		Image:     p.Image,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}
