package resource

import "context"

// A Driver adapts a single kind to its remote service.
//
// Items passed to a driver have all declared references resolved; the
// identifier of a referenced item is available with Item.RefID and through
// Item.Value.
type Driver interface {
	// Find locates the remote item matching the natural key of the item.
	// If no item exists, Find returns nil without an error. If more than one
	// remote item matches the full key, an AmbiguousRemote error is
	// returned.
	Find(ctx context.Context, item *Item) (*Remote, error)

	// Create creates the item and returns the created remote item.
	Create(ctx context.Context, item *Item) (*Remote, error)

	// Update writes the changed fields to an existing remote item and
	// returns the updated remote item.
	Update(ctx context.Context, existing *Remote, delta Delta, item *Item) (*Remote, error)
}

// A Pruner is implemented by drivers that can delete items previously
// created by the seeder.
type Pruner interface {
	// ListSeeded returns every remote item carrying the seeder's marker.
	ListSeeded(ctx context.Context) ([]*Remote, error)

	// Delete deletes a remote item.
	Delete(ctx context.Context, existing *Remote) error
}
