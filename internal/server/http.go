package server

import (
	"net/http"
)

func NewServeMux(handler *Handler) *http.ServeMux {
	serveMux := http.NewServeMux()
	serveMux.HandleFunc("GET /{$}", handler.Home)
	serveMux.HandleFunc("GET /health-check", handler.HealthCheck)
	serveMux.HandleFunc("GET /openapi.json", handler.OpenApi)
	serveMux.HandleFunc("GET /events", handler.Events)

	serveMux.HandleFunc("GET /api/info", handler.Info)
	serveMux.HandleFunc("GET /api/regions", handler.Regions)
	serveMux.HandleFunc("GET /api/regions/{name}", handler.Region)
	serveMux.HandleFunc("GET /api/organizations", handler.Organizations)
	serveMux.HandleFunc("GET /api/analytics", handler.Analytics)

	serveMux.HandleFunc("POST /reload", handler.Reload)
	serveMux.HandleFunc("POST /shutdown", handler.Shutdown)

	return serveMux
}
