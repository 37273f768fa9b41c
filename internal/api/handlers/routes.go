package handlers

import (
	"net/http"
	"strings"

	"github.com/secondlook/secondlook/internal/api/middleware"
)

const periodsPrefix = "/api/assessments/current/periods/"

// Routes registers every local UI endpoint on mux.
func Routes(mux *http.ServeMux, health *HealthHandler, assessments *AssessmentsHandler, hist *HistoryHandler) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		methods(w, r, map[string]http.HandlerFunc{http.MethodGet: health.Landing})
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{http.MethodGet: health.Health})
	})

	mux.HandleFunc("/api/backend/health", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{http.MethodGet: health.BackendHealth})
	})

	// Assessment endpoints
	mux.HandleFunc("/api/assessments", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{http.MethodPost: assessments.Submit})
	})

	mux.HandleFunc("/api/assessments/current", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{
			http.MethodGet:    assessments.Current,
			http.MethodDelete: assessments.Reset,
		})
	})

	mux.HandleFunc("/api/assessments/current/error", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{http.MethodDelete: assessments.DismissError})
	})

	mux.HandleFunc("/api/assessments/current/transactions", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{http.MethodGet: assessments.Transactions})
	})

	mux.HandleFunc(periodsPrefix, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Extract period label from path
		period := strings.TrimPrefix(r.URL.Path, periodsPrefix)
		if period == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Period is required")
			return
		}
		assessments.TogglePeriod(w, r, period)
	})

	// History endpoints
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		methods(w, r, map[string]http.HandlerFunc{
			http.MethodGet:    hist.List,
			http.MethodDelete: hist.Clear,
		})
	})
}

func methods(w http.ResponseWriter, r *http.Request, byMethod map[string]http.HandlerFunc) {
	h, ok := byMethod[r.Method]
	if !ok {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h(w, r)
}
