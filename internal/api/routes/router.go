package routes

import (
	"net/http"

	"github.com/ekmjt/MediQ/internal/api/handlers"
	"github.com/ekmjt/MediQ/internal/api/middleware"
	"github.com/ekmjt/MediQ/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	triageHandler *handlers.TriageHandler
	queueHandler  *handlers.QueueHandler
	sseHandler    *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	triageHandler *handlers.TriageHandler,
	queueHandler *handlers.QueueHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		triageHandler: triageHandler,
		queueHandler:  queueHandler,
		sseHandler:    sseHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Triage endpoints
	r.mux.HandleFunc("POST /api/triage/start", r.triageHandler.StartTriage)
	r.mux.HandleFunc("POST /api/triage/message", r.triageHandler.Message)
	r.mux.HandleFunc("POST /api/triage/complete", r.triageHandler.CompleteTriage)

	// Queue endpoints
	r.mux.HandleFunc("GET /api/queue", r.queueHandler.GetQueue)
	r.mux.HandleFunc("GET /api/queue/position/{patientId}", r.queueHandler.GetPosition)
	r.mux.HandleFunc("POST /api/queue/admit", r.queueHandler.Admit)
	r.mux.HandleFunc("POST /api/queue/lower", r.queueHandler.LowerPosition)
	r.mux.HandleFunc("POST /api/queue/withdraw", r.queueHandler.Withdraw)
	r.mux.HandleFunc("POST /api/queue/checkin", r.queueHandler.CheckInResponse)

	// Streaming endpoints
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/queue", r.sseHandler.StreamQueueUpdates)
		r.mux.HandleFunc("GET /api/stream/patients/{id}", r.sseHandler.StreamPatientUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Compression(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
