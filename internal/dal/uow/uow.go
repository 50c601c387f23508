package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/icommentrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/ilineitemrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/inoterepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	auditrepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/auditlog/postgres"
	commentrepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/comment/postgres"
	noterepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/deliverynote/postgres"
	lineitemrepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/lineitem/postgres"
	orderrepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/outbox/postgres"
	sequencerepo "github.com/corray333/backend-labs/orderdesk/internal/dal/repositories/sequence/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
	"github.com/jackc/pgx/v5"
)

// UnitOfWork hands out repositories bound either to the pool or, after Begin,
// to a single transaction.
type UnitOfWork struct {
	conn postgres.GenericConn
	tx   pgx.Tx

	orderRepo    iorderrepo.IOrderRepository
	lineItemRepo ilineitemrepo.ILineItemRepository
	commentRepo  icommentrepo.ICommentRepository
	noteRepo     inoterepo.INoteRepository
	noteItemRepo inoterepo.INoteItemRepository
	sequenceRepo sequence.Store
	auditLogRepo iauditrepo.IAuditLogRepository
	outboxRepo   ioutboxrepo.IOutboxRepository
}

// NewUnitOfWork creates a unit of work over conn. Until Begin is called the
// repositories run every statement in its own implicit transaction.
func NewUnitOfWork(conn postgres.GenericConn) *UnitOfWork {
	u := &UnitOfWork{conn: conn}
	u.bind(conn)

	return u
}

func (u *UnitOfWork) bind(conn postgres.GenericConn) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.lineItemRepo = lineitemrepo.NewPostgresLineItemRepository(conn)
	u.commentRepo = commentrepo.NewPostgresCommentRepository(conn)
	u.noteRepo = noterepo.NewPostgresNoteRepository(conn)
	u.noteItemRepo = noterepo.NewPostgresNoteItemRepository(conn)
	u.sequenceRepo = sequencerepo.NewPostgresSequenceRepository(conn)
	u.auditLogRepo = auditrepo.NewAuditLogRepository(conn)
	u.outboxRepo = outboxrepo.NewOutboxRepository(conn)
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) LineItemRepository() ilineitemrepo.ILineItemRepository {
	return u.lineItemRepo
}

func (u *UnitOfWork) CommentRepository() icommentrepo.ICommentRepository {
	return u.commentRepo
}

func (u *UnitOfWork) NoteRepository() inoterepo.INoteRepository {
	return u.noteRepo
}

func (u *UnitOfWork) NoteItemRepository() inoterepo.INoteItemRepository {
	return u.noteItemRepo
}

func (u *UnitOfWork) SequenceRepository() sequence.Store {
	return u.sequenceRepo
}

func (u *UnitOfWork) AuditLogRepository() iauditrepo.IAuditLogRepository {
	return u.auditLogRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// Begin opens a transaction and rebinds every repository to it.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("unit of work already started")
	}

	tx, err := u.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

// Commit commits the transaction. It is a no-op when Begin was not called.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Rollback rolls the transaction back. Calling it after Commit is safe, so it
// can be deferred right after Begin.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}
