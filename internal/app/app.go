package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/filestore"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/rabbitmq"
	auditrabbit "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/auditlog/rabbitmq"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/uow"
	"github.com/corray333/backend-labs/orderdesk/internal/otel"
	"github.com/corray333/backend-labs/orderdesk/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/orderdesk/internal/service/services/notesvc"
	"github.com/corray333/backend-labs/orderdesk/internal/service/services/ordersvc"
	httptransport "github.com/corray333/backend-labs/orderdesk/internal/transport/http"
	"github.com/corray333/backend-labs/orderdesk/internal/worker/outbox"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	transport      *httptransport.HTTPTransport
	outboxWorker   *outbox.Worker
	otel           *otel.OtelController
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	pool := uow.NewUnitOfWork(postgresClient.Pool())
	queue := viper.GetString("rabbitmq.audit_queue")

	auditSvc := auditsvc.MustNewAuditService(
		auditsvc.WithLogRepository(pool.AuditLogRepository()),
		auditsvc.WithOutbox(pool.OutboxRepository()),
		auditsvc.WithPublisher(auditrabbit.NewAuditRabbitMQRepository(rabbitClient, queue)),
		auditsvc.WithQueue(queue),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithAuditSink(auditSvc),
		ordersvc.WithFileStore(filestore.MustNewStore()),
	)

	noteSvc := notesvc.MustNewNoteService(
		notesvc.WithPostgresClient(postgresClient),
		notesvc.WithAuditSink(auditSvc),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, noteSvc, auditSvc)
	transport.RegisterRoutes()

	return &App{
		transport:      transport,
		outboxWorker:   outbox.NewWorker(pool.OutboxRepository(), rabbitClient),
		otel:           otelController,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		a.outboxWorker.Start(workerCtx)
	}()

	go func() {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	stopWorker()
	<-workerDone

	if err := a.otel.Shutdown(ctx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	slog.Info("Application shutdown complete")
}
