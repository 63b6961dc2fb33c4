package ports

import (
	"context"

	"hexmap/internal/domain"
)

// GenerationsRequest asks for the subtree around a coordinate.
type GenerationsRequest struct {
	CoordID     string
	Generations int
}

// CreateItemRequest creates a tile at a free coordinate.
type CreateItemRequest struct {
	Coordinates string
	ParentID    string
	Title       string
	Content     string
	Preview     string
	Link        string
	ItemType    string
	OwnerID     string
	Visibility  string
}

// UpdateItemRequest patches a tile. Nil fields are left untouched.
// Coordinates moves the tile when set.
type UpdateItemRequest struct {
	Title       *string
	Content     *string
	Preview     *string
	Link        *string
	Coordinates *string
}

// ServerService is the fixed query/mutation contract of the authoritative
// remote store. The engine consumes it and never implements conflict
// resolution on top: the server wins, discrepancies are re-fetched.
type ServerService interface {
	// FetchItemsForCoordinate returns the item at the coordinate plus its
	// direct children (one generation).
	FetchItemsForCoordinate(ctx context.Context, coordID string) ([]domain.ServerItem, error)
	GetItemByCoordinate(ctx context.Context, coordID string) (*domain.ServerItem, error)
	// GetRootItemByID resolves an opaque database id to an item.
	GetRootItemByID(ctx context.Context, dbID string) (*domain.ServerItem, error)
	GetDescendants(ctx context.Context, coordID string) ([]domain.ServerItem, error)
	GetAncestors(ctx context.Context, coordID string) ([]domain.ServerItem, error)
	GetItemWithGenerations(ctx context.Context, req GenerationsRequest) ([]domain.ServerItem, error)

	CreateItem(ctx context.Context, req CreateItemRequest) (*domain.ServerItem, error)
	UpdateItem(ctx context.Context, dbID string, req UpdateItemRequest) (*domain.ServerItem, error)
	DeleteItem(ctx context.Context, dbID string) error
	// UpdateVisibilityWithDescendants updates a whole subtree server-side in
	// one call.
	UpdateVisibilityWithDescendants(ctx context.Context, dbID string, visibility string) error
}
