package orders

import (
	"context"
	"errors"
	"net/http"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/filestore"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/order"
	"github.com/corray333/backend-labs/orderdesk/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/httpio"
	"github.com/gorilla/schema"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, o order.Order, upload *filestore.Upload) (order.Order, error)
	UpdateOrder(ctx context.Context, id int64, o order.Order, upload *filestore.Upload) (order.Order, error)
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

// Handler serves the /orders endpoints.
type Handler struct {
	service service
	decoder *httpio.Decoder
}

// NewHandler creates a new orders Handler.
func NewHandler(service service, decoder *httpio.Decoder) *Handler {
	return &Handler{service: service, decoder: decoder}
}

// Create handles POST /orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req := orderRequest{}
	upload, err := h.decoder.DecodeMutation(r, &req)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	model, err := req.toModel()
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	created, err := h.service.CreateOrder(r.Context(), model, upload)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /orders/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.IDParam(r)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	req := orderRequest{}
	upload, err := h.decoder.DecodeMutation(r, &req)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	model, err := req.toModel()
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	updated, err := h.service.UpdateOrder(r.Context(), id, model, upload)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, updated)
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.IDParam(r)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, o)
}

type queryOrdersRequest struct {
	Ids         []int64  `schema:"ids,omitempty"`
	CustomerIds []string `schema:"customerIds,omitempty"`
	Statuses    []string `schema:"status,omitempty"`
	Limit       int      `schema:"limit,omitempty"`
	Offset      int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) toModel() (order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		status, err := order.ParseStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		statuses = append(statuses, status)
	}

	return order.QueryOrdersModel{
		Ids:         q.Ids,
		CustomerIds: q.CustomerIds,
		Statuses:    statuses,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}, nil
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	filter, err := query.toModel()
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, orders)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ordersvc.ErrOrderNotFound):
		httpio.WriteError(w, http.StatusNotFound, err)
	case errors.Is(err, ordersvc.ErrForeignRow),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, comment.ErrInvalidCategory):
		httpio.WriteError(w, http.StatusBadRequest, err)
	default:
		httpio.WriteError(w, http.StatusInternalServerError, err)
	}
}
