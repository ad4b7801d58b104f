package handler

import (
	"net/http"

	"attendance.service/internal/core"
)

type SettingsHandler struct {
	Service *core.SettingsService
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Get())
}

// Replace swaps the whole settings document. An invalid document is rejected
// and the current one stays in effect.
func (h *SettingsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.Service.Update(r.Context(), req.toModel(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
