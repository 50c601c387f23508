// Package httpio holds the request decoding and response writing shared by
// the HTTP handlers.
package httpio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/filestore"
	"github.com/corray333/backend-labs/orderdesk/internal/service/normalize"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest marks errors caused by a malformed or invalid request.
var ErrInvalidRequest = errors.New("invalid request")

const (
	maxMultipartMemory = 32 << 20
	dataField          = "data"
	documentField      = "document"
)

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// ErrInternal is the message clients get for server-side failures. The cause
// is only logged.
var ErrInternal = errors.New("internal server error")

// WriteError writes err as {"error": "..."} with the given status. For 5xx
// statuses err is logged and replaced by ErrInternal.
func WriteError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", status, "error", err)
		err = ErrInternal
	}
	WriteJSON(w, status, errorResponse{Error: err.Error()})
}

// Decoder turns request bodies into typed, validated request structs.
type Decoder struct {
	normalizer *normalize.Normalizer
	validate   *validator.Validate
}

// NewDecoder creates a Decoder normalizing bodies with n.
func NewDecoder(n *normalize.Normalizer) *Decoder {
	return &Decoder{
		normalizer: n,
		validate:   validator.New(),
	}
}

// Decode normalizes the comma decimals of the JSON document data, decodes it
// into dst rejecting unknown fields and validates dst.
func (d *Decoder) Decode(data []byte, dst any) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidRequest, err)
	}

	normalized, err := json.Marshal(d.normalizer.Normalize(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	strict := json.NewDecoder(bytes.NewReader(normalized))
	strict.DisallowUnknownFields()
	if err := strict.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := d.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return nil
}

// DecodeMutation decodes a create or update request into dst. A JSON body is
// the document itself; a multipart body carries the document in the "data"
// field and an optional attachment in the "document" file field.
func (d *Decoder) DecodeMutation(r *http.Request, dst any) (*filestore.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}

		return nil, d.Decode(body, dst)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := d.Decode([]byte(r.FormValue(dataField)), dst); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile(documentField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return &filestore.Upload{Name: header.Filename, Data: data}, nil
}

// IDParam parses the {id} URL parameter.
func IDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", ErrInvalidRequest)
	}

	return id, nil
}

// Text holds a JSON string or number as text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*t = Text(b)
	default:
		return fmt.Errorf("expected a string or a number, got %s", b)
	}

	return nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}

// ParseDate parses an ISO 8601 date or date-time.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q is not an ISO date", ErrInvalidRequest, s)
}

// Date is a JSON date accepting any layout ParseDate does.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t

	return nil
}

// TimePtr returns the date as a *time.Time, nil for a nil Date.
func (d *Date) TimePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time

	return &t
}
