package server

import (
	"net/http"

	"github.com/regionatlas/atlasd/internal/static"
)

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	writeBytes(w, static.Index())
}
