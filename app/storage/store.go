package storage

import (
	"context"
	"errors"
	"fmt"

	"prdchat/app/model"

	"github.com/samber/oops"
)

// PartitionKey namespaces every session record of this service.
const PartitionKey = "PRDChatSession"

// Store persists chat sessions keyed by id.
type Store interface {
	// Create inserts a new session.
	Create(ctx context.Context, session *model.Session) error
	// Get returns model.ErrNotFound when the session does not exist.
	Get(ctx context.Context, id string) (*model.Session, error)
	// List returns id and name of every session.
	List(ctx context.Context) ([]model.Summary, error)
	// Update replaces the non-nil fields of the update in a single write, returning
	// model.ErrNotFound when the session does not exist.
	Update(ctx context.Context, id string, update model.SessionUpdate) error
	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}

func notFound(id string) error {
	return oops.
		In("storage").
		Code("not_found").
		With("chat_id", id).
		Wrapf(model.ErrNotFound, "chat %s", id)
}

func unavailable(err error, op, id string) error {
	return oops.
		In("storage").
		Code("store_unavailable").
		With("op", op).
		With("chat_id", id).
		Wrapf(fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err), "%s failed", op)
}

var errAlreadyExists = errors.New("chat session already exists")
