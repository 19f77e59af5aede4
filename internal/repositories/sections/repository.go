// Package sections defines the section repository contract and its storage
// backends. Every operation is scoped to an explicit owner id; sections are
// never visible across owners, and ids are sequential, dense and 1-based
// within each owner.
package sections

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/models"
)

// Repository is the storage contract consumed by the conversation engine and
// the read-only intents.
//
// All operations on one owner's collection are linearizable with respect to
// each other; operations on different owners never block one another.
// Soft delete only sets a flag and never renumbers ids.
type Repository interface {
	Create(ctx context.Context, ownerID int64, title, content string) (*models.Section, error)
	List(ctx context.Context, ownerID int64, includeDeleted bool) ([]models.Section, error)
	Get(ctx context.Context, ownerID, id int64) (*models.Section, error)
	// Update changes the non-nil fields and refreshes UpdatedAt.
	Update(ctx context.Context, ownerID, id int64, newTitle, newContent *string) (*models.Section, error)
	SoftDelete(ctx context.Context, ownerID, id int64) error
	ToggleFavorite(ctx context.Context, ownerID, id int64) (*models.Section, error)
}
