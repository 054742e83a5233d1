package routers

import (
	"net/http"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/service"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

var spinErrorStatus = map[string]int{
	service.KindUnauthenticated:  http.StatusUnauthorized,
	service.KindNotEligible:      http.StatusForbidden,
	service.KindSpinsExhausted:   http.StatusTooManyRequests,
	service.KindInvalidArgument:  http.StatusBadRequest,
	service.KindStoreUnavailable: http.StatusServiceUnavailable,
}

// spinErrorMessage - текст для клиента. Детали внутренних ошибок наружу не уходят.
func spinErrorMessage(kind string, err error) string {
	switch kind {
	case service.KindNotEligible:
		return service.ErrNotEligible.Error()
	case service.KindSpinsExhausted:
		return service.ErrSpinsExhausted.Error()
	case service.KindStoreUnavailable:
		return service.ErrStoreUnavailable.Error()
	}
	return err.Error()
}

func (h *Handler) writeSpinError(w http.ResponseWriter, err error) {
	kind := service.SpinErrorKind(err)
	if kind == service.KindStoreUnavailable {
		h.Logger.Error("spin store failure", zap.Error(err))
	}
	h.writeJSON(w, spinErrorStatus[kind], models.SpinErrorResponse{
		Success: false,
		Error:   models.SpinErrorBody{Kind: kind, Message: spinErrorMessage(kind, err)},
	})
}

func (h *Handler) SpinHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			h.writeSpinError(w, service.ErrUnauthenticated)
			return
		}
		res, err := h.SpinService.Spin(r.Context(), userID, r.Header.Get(idempotencyHeader))
		if err != nil {
			h.writeSpinError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, models.SpinResponse{Success: true, Prize: res.Prize, Replayed: res.Replayed})
	}
}

func (h *Handler) SpinStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			h.writeSpinError(w, service.ErrUnauthenticated)
			return
		}
		e, err := h.SpinService.Status(r.Context(), userID)
		if err != nil {
			h.writeSpinError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, models.SpinStatusResponse{
			OrderCount:   e.OrderCount,
			TotalAmount:  e.TotalAmount,
			AllowedSpins: e.AllowedSpins,
			UsedSpins:    e.UsedSpins,
			Remaining:    e.Remaining,
			Eligible:     e.Eligible,
			NextPrize:    e.NextPrize,
			WindowStart:  e.Window.Start.Format(time.RFC3339),
			WindowEnd:    e.Window.End.Format(time.RFC3339),
		})
	}
}

func (h *Handler) SpinHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			h.writeSpinError(w, service.ErrUnauthenticated)
			return
		}
		spins, err := h.SpinService.History(r.Context(), userID)
		if err != nil {
			h.writeSpinError(w, err)
			return
		}
		if len(spins) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		resp := make([]models.SpinRecordResponse, 0, len(spins))
		for _, s := range spins {
			resp = append(resp, spinRecordResponse(s))
		}
		h.writeJSON(w, http.StatusOK, resp)
	}
}

func spinRecordResponse(s models.SpinRecord) models.SpinRecordResponse {
	return models.SpinRecordResponse{
		ID:        s.ID,
		Prize:     s.Amount,
		Status:    s.Status,
		CreatedAt: s.CreatedAt.Format(time.RFC3339Nano),
	}
}
