package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/filestore"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/order"
	"github.com/corray333/backend-labs/orderdesk/internal/service/normalize"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/httpio"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/logs"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/notes"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/orders"
	"github.com/corray333/backend-labs/orderdesk/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/orderdesk/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

type orderService interface {
	CreateOrder(ctx context.Context, o order.Order, upload *filestore.Upload) (order.Order, error)
	UpdateOrder(ctx context.Context, id int64, o order.Order, upload *filestore.Upload) (order.Order, error)
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

type noteService interface {
	CreateNote(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error)
	UpdateNote(ctx context.Context, id int64, n deliverynote.Note) (deliverynote.Note, error)
	GetNote(ctx context.Context, id int64) (deliverynote.Note, error)
	ListNotes(ctx context.Context, filter deliverynote.QueryNotesModel) ([]deliverynote.Note, error)
	NextNumber(ctx context.Context, t deliverynote.Type, date time.Time) (int64, error)
}

type auditService interface {
	List(ctx context.Context, q auditlog.Query) ([]auditlog.Entry, error)
}

type HTTPTransport struct {
	server       *http.Server
	router       *chi.Mux
	orders       *orders.Handler
	notes        *notes.Handler
	auditService auditService
}

func NewHTTPTransport(orderSvc orderService, noteSvc noteService, auditSvc auditService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	decoder := httpio.NewDecoder(normalize.NewNormalizer(viper.GetStringSlice("normalizer.skip_fields")...))

	return &HTTPTransport{
		server:       server,
		router:       router,
		orders:       orders.NewHandler(orderSvc, decoder),
		notes:        notes.NewHandler(noteSvc, decoder),
		auditService: auditSvc,
	}
}

// Run serves HTTP until Shutdown is called.
func (h *HTTPTransport) Run() error {
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler returns the router serving the registered routes.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/orders", func(r chi.Router) {
		r.Post("/", h.orders.Create)
		r.Get("/", h.orders.List)
		r.Get("/{id}", h.orders.Get)
		r.Put("/{id}", h.orders.Update)
	})

	h.router.Route("/wz", func(r chi.Router) {
		r.Post("/", h.notes.Create)
		r.Get("/", h.notes.List)
		r.Get("/count", h.notes.Count)
		r.Get("/{id}", h.notes.Get)
		r.Put("/{id}", h.notes.Update)
	})

	h.router.Get("/logs", h.listLogs)
}

func (h *HTTPTransport) listLogs(w http.ResponseWriter, r *http.Request) {
	logs.List(w, r, h.auditService)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	router.Use(middleware.Recoverer)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
