package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/filestore"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/icommentrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/ilineitemrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/order"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
)

type state struct {
	orders   map[int64]order.Order
	lastID   int64
	items    map[string]lineitem.LineItem
	comments map[string]comment.Comment
	counters map[string]int64
}

func newState() *state {
	return &state{
		orders:   map[int64]order.Order{},
		items:    map[string]lineitem.LineItem{},
		comments: map[string]comment.Comment{},
		counters: map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.lastID = s.lastID
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}

	return c
}

// memDB is an in-memory stand-in for the orders schema with transactional units of work.
type memDB struct {
	mu sync.Mutex
	st *state

	sequenceErr      error
	commentUpsertErr error
}

func newMemDB() *memDB {
	return &memDB{st: newState()}
}

func (db *memDB) newUOW() unitOfWork {
	return &memUOW{db: db}
}

func (db *memDB) seedOrder(o order.Order) order.Order {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.st.lastID++
	o.ID = db.st.lastID
	items, comments := o.LineItems, o.Comments
	o.LineItems, o.Comments = nil, nil
	db.st.orders[o.ID] = o
	for _, item := range items {
		item.OrderID = o.ID
		db.st.items[item.ID] = item
	}
	for _, c := range comments {
		c.OrderID = o.ID
		db.st.comments[c.ID] = c
	}

	return o
}

func (db *memDB) itemIDs(orderID int64) []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	var ids []string
	for id, item := range db.st.items {
		if item.OrderID == orderID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids
}

type memUOW struct {
	db *memDB
	tx *state
}

func (u *memUOW) Begin(context.Context) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	if u.tx != nil {
		return errors.New("already begun")
	}
	u.tx = u.db.st.clone()

	return nil
}

func (u *memUOW) Commit(context.Context) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	if u.tx != nil {
		u.db.st = u.tx
		u.tx = nil
	}

	return nil
}

func (u *memUOW) Rollback(context.Context) error {
	u.tx = nil

	return nil
}

// with runs f on the transaction state, or on the committed state outside a transaction.
func (u *memUOW) with(f func(st *state) error) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	if u.tx != nil {
		return f(u.tx)
	}

	return f(u.db.st)
}

func (u *memUOW) OrderRepository() iorderrepo.IOrderRepository       { return memOrders{u} }
func (u *memUOW) LineItemRepository() ilineitemrepo.ILineItemRepository { return memItems{u} }
func (u *memUOW) CommentRepository() icommentrepo.ICommentRepository  { return memComments{u} }
func (u *memUOW) SequenceRepository() sequence.Store                  { return memSequence{u} }

type memOrders struct{ u *memUOW }

func (r memOrders) Insert(_ context.Context, o order.Order) (order.Order, error) {
	err := r.u.with(func(st *state) error {
		st.lastID++
		o.ID = st.lastID
		stored := o
		stored.LineItems, stored.Comments = nil, nil
		st.orders[o.ID] = stored

		return nil
	})

	return o, err
}

func (r memOrders) Update(_ context.Context, o order.Order) (order.Order, error) {
	err := r.u.with(func(st *state) error {
		if _, ok := st.orders[o.ID]; !ok {
			return fmt.Errorf("order %d: %w", o.ID, postgres.ErrNotFound)
		}
		stored := o
		stored.LineItems, stored.Comments = nil, nil
		st.orders[o.ID] = stored

		return nil
	})

	return o, err
}

func (r memOrders) GetByID(_ context.Context, id int64) (order.Order, error) {
	var o order.Order
	err := r.u.with(func(st *state) error {
		found, ok := st.orders[id]
		if !ok {
			return postgres.ErrNotFound
		}
		o = found

		return nil
	})

	return o, err
}

func (r memOrders) GetForUpdate(ctx context.Context, id int64) (order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	var out []order.Order
	err := r.u.with(func(st *state) error {
		for _, o := range st.orders {
			if len(filter.Ids) > 0 && !slices.Contains(filter.Ids, o.ID) {
				continue
			}
			if len(filter.CustomerIds) > 0 && !slices.Contains(filter.CustomerIds, o.CustomerID) {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, o.Status) {
				continue
			}
			out = append(out, o)
		}

		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, err
}

type memItems struct{ u *memUOW }

func (r memItems) Upsert(_ context.Context, items []lineitem.LineItem) ([]lineitem.LineItem, error) {
	saved := []lineitem.LineItem{}
	err := r.u.with(func(st *state) error {
		for _, item := range items {
			if prev, ok := st.items[item.ID]; ok {
				if prev.OrderID != item.OrderID {
					continue
				}
				item.CreatedAt = prev.CreatedAt
			}
			st.items[item.ID] = item
			saved = append(saved, item)
		}

		return nil
	})

	return saved, err
}

func (r memItems) Delete(_ context.Context, orderID int64, ids []string) error {
	return r.u.with(func(st *state) error {
		for _, id := range ids {
			if item, ok := st.items[id]; ok && item.OrderID == orderID {
				delete(st.items, id)
			}
		}

		return nil
	})
}

func (r memItems) Query(_ context.Context, filter *lineitem.QueryLineItemsModel) ([]lineitem.LineItem, error) {
	var out []lineitem.LineItem
	err := r.u.with(func(st *state) error {
		for _, item := range st.items {
			if len(filter.OrderIds) > 0 && !slices.Contains(filter.OrderIds, item.OrderID) {
				continue
			}
			if len(filter.Ids) > 0 && !slices.Contains(filter.Ids, item.ID) {
				continue
			}
			out = append(out, item)
		}

		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, err
}

type memComments struct{ u *memUOW }

func (r memComments) Upsert(_ context.Context, comments []comment.Comment) ([]comment.Comment, error) {
	if r.u.db.commentUpsertErr != nil {
		return nil, r.u.db.commentUpsertErr
	}

	saved := []comment.Comment{}
	err := r.u.with(func(st *state) error {
		for _, c := range comments {
			if prev, ok := st.comments[c.ID]; ok {
				if prev.OrderID != c.OrderID {
					continue
				}
				c.CreatedAt = prev.CreatedAt
			}
			st.comments[c.ID] = c
			saved = append(saved, c)
		}

		return nil
	})

	return saved, err
}

func (r memComments) Delete(_ context.Context, orderID int64, ids []string) error {
	return r.u.with(func(st *state) error {
		for _, id := range ids {
			if c, ok := st.comments[id]; ok && c.OrderID == orderID {
				delete(st.comments, id)
			}
		}

		return nil
	})
}

func (r memComments) QueryByOrderIDs(_ context.Context, orderIDs []int64) ([]comment.Comment, error) {
	var out []comment.Comment
	err := r.u.with(func(st *state) error {
		for _, c := range st.comments {
			if slices.Contains(orderIDs, c.OrderID) {
				out = append(out, c)
			}
		}

		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, err
}

type memSequence struct{ u *memUOW }

func (r memSequence) NextValue(_ context.Context, scope sequence.Scope) (int64, error) {
	if r.u.db.sequenceErr != nil {
		return 0, r.u.db.sequenceErr
	}

	var n int64
	err := r.u.with(func(st *state) error {
		last, ok := st.counters[scope.Key]
		if !ok {
			last = int64(len(st.orders))
		}
		n = last + 1
		st.counters[scope.Key] = n

		return nil
	})

	return n, err
}

func (r memSequence) PeekValue(_ context.Context, scope sequence.Scope) (int64, error) {
	var n int64
	err := r.u.with(func(st *state) error {
		last, ok := st.counters[scope.Key]
		if !ok {
			last = int64(len(st.orders))
		}
		n = last + 1

		return nil
	})

	return n, err
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (a *recordingAudit) Record(_ context.Context, e auditlog.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

type fakeFiles struct {
	validateErr error
	saved       []filestore.Upload
}

func (f *fakeFiles) Validate(filestore.Upload) error {
	return f.validateErr
}

func (f *fakeFiles) Save(_ context.Context, u filestore.Upload) (string, error) {
	f.saved = append(f.saved, u)

	return "/files/" + u.Name, nil
}
