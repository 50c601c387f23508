package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/filestore"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/icommentrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/ilineitemrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/uow"
	"github.com/corray333/backend-labs/orderdesk/internal/service/changeset"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/order"
	"github.com/corray333/backend-labs/orderdesk/internal/service/reconcile"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrForeignRow is returned when a submitted line item or comment id
	// already belongs to another order.
	ErrForeignRow = errors.New("row belongs to another order")
)

// OrderService is a service for managing orders.
type OrderService struct {
	newUOW func() unitOfWork
	audit  auditSink
	files  fileStore
	now    func() time.Time
	newID  func() string
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	LineItemRepository() ilineitemrepo.ILineItemRepository
	CommentRepository() icommentrepo.ICommentRepository
	SequenceRepository() sequence.Store
}

type auditSink interface {
	Record(ctx context.Context, entry auditlog.Entry)
}

type fileStore interface {
	Validate(u filestore.Upload) error
	Save(ctx context.Context, u filestore.Upload) (string, error)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("order service requires a postgres client or a unit of work factory")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient.Pool())
		}
	}
}

// WithUnitOfWork sets the factory of units of work directly.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(f func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = f
	}
}

// WithAuditSink sets where audit entries of order mutations are recorded.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditSink(a auditSink) option {
	return func(s *OrderService) {
		s.audit = a
	}
}

// WithFileStore sets the store of order documents.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFileStore(f fileStore) option {
	return func(s *OrderService) {
		s.files = f
	}
}

// WithClock replaces the service clock.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// WithIDGenerator replaces the generator of line item and comment ids.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithIDGenerator(f func() string) option {
	return func(s *OrderService) {
		s.newID = f
	}
}

func (s *OrderService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("order-desk").Start(ctx, "OrderService."+name)
}

// CreateOrder allocates the display id and stores the order with its line
// items and comments in one transaction. Every child row gets a fresh id.
func (s *OrderService) CreateOrder(
	ctx context.Context,
	o order.Order,
	upload *filestore.Upload,
) (order.Order, error) {
	ctx, span := s.startSpan(ctx, "CreateOrder")
	defer span.End()

	now := s.now()
	if o.Status == "" {
		o.Status = order.StatusNew
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	if path, ok := s.attach(ctx, upload); ok {
		o.DocumentPath = path
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer rollback(ctx, work)

	allocator := sequence.NewAllocator(work.SequenceRepository(), sequence.WithClock(s.now))
	o.DisplayID = allocator.NextOrderID(ctx)

	created, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	items := make([]lineitem.LineItem, len(o.LineItems))
	for i := range o.LineItems {
		items[i] = o.LineItems[i].WithRowID(s.newID())
	}
	comments := make([]comment.Comment, len(o.Comments))
	for i := range o.Comments {
		comments[i] = o.Comments[i].WithRowID(s.newID())
	}

	created.LineItems, err = s.upsertLineItems(ctx, work, created.ID, items, now)
	if err != nil {
		return order.Order{}, err
	}
	created.Comments, err = s.upsertComments(ctx, work, created.ID, comments, now)
	if err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", created.ID))

	s.record(ctx, auditlog.Entry{
		Entity:     auditlog.EntityOrder,
		EntityID:   strconv.FormatInt(created.ID, 10),
		EntityName: created.DisplayID,
		EventType:  auditlog.EventCreated,
		CreatedAt:  now,
	})

	return created, nil
}

// UpdateOrder replaces the order's fields and reconciles its line items and
// comments against the submitted sets, all in one transaction.
func (s *OrderService) UpdateOrder(
	ctx context.Context,
	id int64,
	o order.Order,
	upload *filestore.Upload,
) (order.Order, error) {
	ctx, span := s.startSpan(ctx, "UpdateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", id))

	now := s.now()
	path, attached := s.attach(ctx, upload)

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer rollback(ctx, work)

	existing, err := work.OrderRepository().GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return order.Order{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}

		return order.Order{}, err
	}

	existingItems, err := work.LineItemRepository().Query(ctx, &lineitem.QueryLineItemsModel{OrderIds: []int64{id}})
	if err != nil {
		return order.Order{}, err
	}
	existingComments, err := work.CommentRepository().QueryByOrderIDs(ctx, []int64{id})
	if err != nil {
		return order.Order{}, err
	}

	itemsPlan := reconcile.Reconcile(existingItems, o.LineItems, s.newID)
	commentsPlan := reconcile.Reconcile(existingComments, o.Comments, s.newID)

	o.ID = id
	o.DisplayID = existing.DisplayID
	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = existing.Status
	}
	o.DocumentPath = existing.DocumentPath
	if attached {
		o.DocumentPath = path
	}

	updated, err := work.OrderRepository().Update(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	if err := work.LineItemRepository().Delete(ctx, id, itemsPlan.Delete); err != nil {
		return order.Order{}, err
	}
	updated.LineItems, err = s.upsertLineItems(ctx, work, id, itemsPlan.Upsert, now)
	if err != nil {
		return order.Order{}, err
	}

	if err := work.CommentRepository().Delete(ctx, id, commentsPlan.Delete); err != nil {
		return order.Order{}, err
	}
	updated.Comments, err = s.upsertComments(ctx, work, id, commentsPlan.Upsert, now)
	if err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, err
	}

	slog.Debug("Order reconciled",
		"order_id", id,
		"line_items_deleted", len(itemsPlan.Delete),
		"line_items_upserted", len(itemsPlan.Upsert),
		"comments_deleted", len(commentsPlan.Delete),
		"comments_upserted", len(commentsPlan.Upsert),
	)

	changes, err := changeset.DiffValues(existing.Fields(), updated.Fields())
	if err != nil {
		slog.Error("Failed to diff order for audit", "order_id", id, "error", err)
	}
	s.record(ctx, auditlog.Entry{
		Entity:      auditlog.EntityOrder,
		EntityID:    strconv.FormatInt(id, 10),
		EntityName:  updated.DisplayID,
		EventType:   auditlog.EventUpdated,
		ChangedData: changes,
		CreatedAt:   now,
	})

	return updated, nil
}

// GetOrder retrieves an order with its line items and comments.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return order.Order{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}

		return order.Order{}, err
	}

	orders := []order.Order{o}
	if err := loadChildren(ctx, work, orders); err != nil {
		return order.Order{}, err
	}

	return orders[0], nil
}

// ListOrders retrieves orders matching the filter, with their children.
func (s *OrderService) ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	if err := loadChildren(ctx, work, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// loadChildren fetches line items and comments of orders concurrently and
// attaches them in place.
func loadChildren(ctx context.Context, work unitOfWork, orders []order.Order) error {
	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	var (
		items    []lineitem.LineItem
		comments []comment.Comment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = work.LineItemRepository().Query(gctx, &lineitem.QueryLineItemsModel{OrderIds: ids})

		return err
	})
	g.Go(func() error {
		var err error
		comments, err = work.CommentRepository().QueryByOrderIDs(gctx, ids)

		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	byOrder := make(map[int64]int, len(orders))
	for i := range orders {
		byOrder[orders[i].ID] = i
		orders[i].LineItems = []lineitem.LineItem{}
		orders[i].Comments = []comment.Comment{}
	}
	for _, item := range items {
		if i, ok := byOrder[item.OrderID]; ok {
			orders[i].LineItems = append(orders[i].LineItems, item)
		}
	}
	for _, c := range comments {
		if i, ok := byOrder[c.OrderID]; ok {
			orders[i].Comments = append(orders[i].Comments, c)
		}
	}

	return nil
}

func (s *OrderService) upsertLineItems(
	ctx context.Context,
	work unitOfWork,
	orderID int64,
	items []lineitem.LineItem,
	now time.Time,
) ([]lineitem.LineItem, error) {
	for i := range items {
		items[i].OrderID = orderID
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
	}

	saved, err := work.LineItemRepository().Upsert(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(saved) != len(items) {
		return nil, fmt.Errorf("line items of order %d: %w", orderID, ErrForeignRow)
	}

	return saved, nil
}

func (s *OrderService) upsertComments(
	ctx context.Context,
	work unitOfWork,
	orderID int64,
	comments []comment.Comment,
	now time.Time,
) ([]comment.Comment, error) {
	for i := range comments {
		comments[i].OrderID = orderID
		comments[i].CreatedAt = now
		comments[i].UpdatedAt = now
	}

	saved, err := work.CommentRepository().Upsert(ctx, comments)
	if err != nil {
		return nil, err
	}
	if len(saved) != len(comments) {
		return nil, fmt.Errorf("comments of order %d: %w", orderID, ErrForeignRow)
	}

	return saved, nil
}

// attach stores upload and returns its path. An invalid or unstorable upload
// is skipped: the order mutation goes on without a document.
func (s *OrderService) attach(ctx context.Context, upload *filestore.Upload) (string, bool) {
	if upload == nil || s.files == nil {
		return "", false
	}

	if err := s.files.Validate(*upload); err != nil {
		slog.Warn("Skipping invalid order document", "name", upload.Name, "error", err)

		return "", false
	}

	path, err := s.files.Save(ctx, *upload)
	if err != nil {
		slog.Error("Failed to store order document", "name", upload.Name, "error", err)

		return "", false
	}

	return path, true
}

func (s *OrderService) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, entry)
}

func rollback(ctx context.Context, work unitOfWork) {
	if err := work.Rollback(ctx); err != nil {
		slog.Error("Failed to rollback order transaction", "error", err)
	}
}
