package logs

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/transport/http/httpio"
	"github.com/gorilla/schema"
)

type service interface {
	List(ctx context.Context, q auditlog.Query) ([]auditlog.Entry, error)
}

type queryLogsRequest struct {
	Entity   string `schema:"entity,omitempty"`
	EntityID string `schema:"entityId,omitempty"`
	Limit    int    `schema:"limit,omitempty"`
	Offset   int    `schema:"offset,omitempty"`
}

// List handles GET /logs.
func List(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryLogsRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err)

		return
	}

	entries, err := service.List(r.Context(), auditlog.Query{
		Entity:   auditlog.Entity(query.Entity),
		EntityID: query.EntityID,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		httpio.WriteError(w, http.StatusInternalServerError, err)

		return
	}
	if entries == nil {
		entries = []auditlog.Entry{}
	}

	httpio.WriteJSON(w, http.StatusOK, entries)
}
