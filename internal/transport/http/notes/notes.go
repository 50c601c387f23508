package notes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/corray333/backend-labs/orderdesk/internal/service/services/notesvc"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/httpio"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

type service interface {
	CreateNote(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error)
	UpdateNote(ctx context.Context, id int64, n deliverynote.Note) (deliverynote.Note, error)
	GetNote(ctx context.Context, id int64) (deliverynote.Note, error)
	ListNotes(ctx context.Context, filter deliverynote.QueryNotesModel) ([]deliverynote.Note, error)
	NextNumber(ctx context.Context, t deliverynote.Type, date time.Time) (int64, error)
}

// Handler serves the /wz endpoints.
type Handler struct {
	service service
	decoder *httpio.Decoder
}

func NewHandler(service service, decoder *httpio.Decoder) *Handler {
	return &Handler{service: service, decoder: decoder}
}

type itemRequest struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
}

type noteRequest struct {
	Type      string        `json:"type"`
	OrderID   int64         `json:"orderId"   validate:"required,gt=0"`
	IssueDate *httpio.Date  `json:"issueDate"`
	Items     []itemRequest `json:"items"     validate:"dive"`
}

func (r *noteRequest) toModel() deliverynote.Note {
	items := make([]deliverynote.Item, len(r.Items))
	for i, item := range r.Items {
		items[i] = deliverynote.Item{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
		}
	}

	return deliverynote.Note{
		Type:      deliverynote.Type(r.Type),
		OrderID:   r.OrderID,
		IssueDate: r.IssueDate.TimePtr(),
		Items:     items,
	}
}

// Create handles POST /wz.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req := noteRequest{}
	if _, err := h.decoder.DecodeMutation(r, &req); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	created, err := h.service.CreateNote(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /wz/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.IDParam(r)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	req := noteRequest{}
	if _, err := h.decoder.DecodeMutation(r, &req); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	updated, err := h.service.UpdateNote(r.Context(), id, req.toModel())
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, updated)
}

// Get handles GET /wz/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.IDParam(r)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	n, err := h.service.GetNote(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, n)
}

type queryNotesRequest struct {
	Ids      []int64  `schema:"ids,omitempty"`
	Types    []string `schema:"type,omitempty"`
	OrderIds []int64  `schema:"orderId,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

// List handles GET /wz.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	decoder := schema.NewDecoder()
	query := &queryNotesRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	filter := deliverynote.QueryNotesModel{
		Ids:      query.Ids,
		OrderIds: query.OrderIds,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	for _, s := range query.Types {
		t, err := deliverynote.ParseType(s)
		if err != nil {
			httpio.WriteError(w, http.StatusBadRequest, err)

			return
		}
		filter.Types = append(filter.Types, t)
	}

	notes, err := h.service.ListNotes(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, notes)
}

type countRequest struct {
	Type string `schema:"type"`
	Date string `schema:"date"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

var errCountParams = errors.New("type and date are required")

// Count handles GET /wz/count: the number the next note of a type dated
// date would get.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	query := &countRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	if query.Type == "" || query.Date == "" {
		httpio.WriteError(w, http.StatusBadRequest, errCountParams)

		return
	}

	t, err := deliverynote.ParseType(query.Type)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", err, query.Type))

		return
	}

	date, err := httpio.ParseDate(query.Date)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	n, err := h.service.NextNumber(r.Context(), t, date)
	if err != nil {
		httpio.WriteError(w, http.StatusInternalServerError, err)

		return
	}

	httpio.WriteJSON(w, http.StatusOK, countResponse{Count: n})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notesvc.ErrNoteNotFound):
		httpio.WriteError(w, http.StatusNotFound, err)
	case errors.Is(err, notesvc.ErrTypeChange),
		errors.Is(err, notesvc.ErrForeignRow),
		errors.Is(err, deliverynote.ErrInvalidType):
		httpio.WriteError(w, http.StatusBadRequest, err)
	default:
		httpio.WriteError(w, http.StatusInternalServerError, err)
	}
}
