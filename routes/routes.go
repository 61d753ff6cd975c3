package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"wmsinbound/handlers"
)

// CORS middleware
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, "+handlers.HeaderActorID+", "+handlers.HeaderActorElevated)

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("actor", handlers.ActorFrom(r.Context()).ID))
		})
	}
}

type Handlers struct {
	Plans    *handlers.PlanHandler
	Receipts *handlers.ReceiptHandler
	PDF      *handlers.PDFHandler
}

// New wires the router with the inbound routes and middlewares.
func New(h Handlers, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withCORS)
	r.Use(handlers.Identity)
	r.Use(zapLoggerMiddleware(logger))
	r.Use(handlers.RecoverWrapper(logger))

	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.Plans.ListPlans)
		r.Get("/{id}", h.Plans.GetPlan)
		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireActor)
			r.Post("/", h.Plans.CreatePlan)
			r.Put("/{id}", h.Plans.UpdatePlan)
			r.Delete("/{id}", h.Plans.DeletePlan)
		})
	})

	r.Route("/receipts/{id}", func(r chi.Router) {
		r.Get("/", h.Receipts.GetReceipt)
		r.Get("/events", h.Receipts.ListEvents)
		r.Get("/slip.pdf", h.PDF.ReceiptSlip)
		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireActor)
			r.Put("/lines", h.Receipts.SaveLines)
			r.Post("/photos", h.Receipts.AddPhoto)
			r.Post("/photos/upload", h.Receipts.UploadPhoto)
			r.Post("/confirm", h.Receipts.Confirm)
			r.Post("/putaway-ready", h.Receipts.PutawayReady)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	logger.Info("router initialized")
	return r
}
