package routers

import (
	"encoding/json"
	"net/http"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"go.uber.org/zap"
)

func (h *Handler) WalletHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		wallet, err := h.WalletService.Wallet(r.Context(), userID)
		if err != nil {
			h.serviceError(w, "get wallet failed", err, zap.Int64("user_id", userID))
			return
		}
		h.writeJSON(w, http.StatusOK, wallet)
	}
}

func (h *Handler) ReviewSpinHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "пользователь не аутентифицирован", http.StatusUnauthorized)
			return
		}
		spinID, ok := pathID(w, r)
		if !ok {
			return
		}
		var req models.SpinReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "неверный формат запроса", http.StatusBadRequest)
			return
		}
		rec, err := h.WalletService.ReviewSpin(r.Context(), adminID, spinID, req.Status)
		if err != nil {
			h.serviceError(w, "review spin failed", err, zap.Int64("spin_id", spinID))
			return
		}
		h.writeJSON(w, http.StatusOK, spinRecordResponse(*rec))
	}
}
