package handlers

import (
	"net/http"

	"vibeplane/internal/controller/middleware"
	"vibeplane/pkg/api"
)

// GetCreditStatus handles GET /credits.
func (h *Handlers) GetCreditStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.credits.GetStatus(ctx, userID)
	if err != nil {
		h.httpError(w, "Failed to load credit status", http.StatusInternalServerError)
		return
	}

	resp := api.CreditStatusResponse{
		Current: status.Current,
		Daily:   status.Daily,
		Tier:    string(status.Tier),
		ResetAt: status.ResetAt,
	}
	for _, u := range status.Usage {
		resp.Usage = append(resp.Usage, api.CreditUsageEntry{
			Action:    u.Action,
			Cost:      u.Cost,
			Success:   u.Success,
			CreatedAt: u.CreatedAt,
		})
	}

	h.respondJson(w, http.StatusOK, resp)
}
