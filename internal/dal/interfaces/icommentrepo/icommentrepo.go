package icommentrepo

import (
	"context"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
)

// ICommentRepository is an interface for order comment postgres repository.
type ICommentRepository interface {
	Upsert(ctx context.Context, comments []comment.Comment) ([]comment.Comment, error)
	Delete(ctx context.Context, orderID int64, ids []string) error
	QueryByOrderIDs(ctx context.Context, orderIDs []int64) ([]comment.Comment, error)
}
