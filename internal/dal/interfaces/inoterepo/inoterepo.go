package inoterepo

import (
	"context"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
)

// INoteRepository is an interface for delivery note postgres repository.
type INoteRepository interface {
	Insert(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error)
	Update(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error)
	GetByID(ctx context.Context, id int64) (deliverynote.Note, error)
	GetForUpdate(ctx context.Context, id int64) (deliverynote.Note, error)
	Query(ctx context.Context, filter *deliverynote.QueryNotesModel) ([]deliverynote.Note, error)
}

// INoteItemRepository is an interface for delivery note item postgres repository.
type INoteItemRepository interface {
	Upsert(ctx context.Context, items []deliverynote.Item) ([]deliverynote.Item, error)
	Delete(ctx context.Context, noteID int64, ids []string) error
	QueryByNoteIDs(ctx context.Context, noteIDs []int64) ([]deliverynote.Item, error)
}
