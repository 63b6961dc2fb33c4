// Package sqlite implements the server service over a local SQLite file.
// Subtree queries scan the owner/group rows and filter with coordinate
// algebra in Go; path columns stay opaque strings.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hexmap/internal/domain"
	"hexmap/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Server implements ports.ServerService using SQLite
type Server struct {
	db     *sql.DB
	dbPath string
}

// Ensure Server implements ServerService
var _ ports.ServerService = (*Server)(nil)

// NewServer creates a new SQLite server
func NewServer() *Server {
	return &Server{}
}

// Open initializes the database at the given path
func (s *Server) Open(dbPath string) error {
	// Expand ~ in path
	if len(dbPath) > 0 && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	s.dbPath = dbPath

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Performance pragmas + schema in single batch (reduces round-trips)
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -64000;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS items (
			coord_id TEXT PRIMARY KEY,
			db_id TEXT NOT NULL UNIQUE,
			parent_id TEXT NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL,
			group_id TEXT NOT NULL,
			depth INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			preview TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			item_type TEXT NOT NULL DEFAULT '',
			visibility TEXT NOT NULL DEFAULT 'public',
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_items_db_id ON items(db_id);
		CREATE INDEX IF NOT EXISTS idx_items_map ON items(owner_id, group_id);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to setup database: %w", err)
	}

	_, err = db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const itemColumns = `coord_id, db_id, parent_id, owner_id, depth, title, content, preview, link, item_type, visibility`

func scanItem(row interface{ Scan(...any) error }) (*domain.ServerItem, error) {
	var item domain.ServerItem
	err := row.Scan(
		&item.Coordinates, &item.ID, &item.ParentID, &item.OwnerID, &item.Depth,
		&item.Title, &item.Content, &item.Preview, &item.Link, &item.ItemType, &item.Visibility,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// mapItems loads every row of the coordinate's map and keeps those matching
// the predicate.
func (s *Server) mapItems(ctx context.Context, coord domain.Coordinate, match func(domain.Coordinate) bool) ([]domain.ServerItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items WHERE owner_id = ? AND group_id = ?
	`, coord.OwnerID, coord.GroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ServerItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		itemCoord, err := domain.ParseID(item.Coordinates)
		if err != nil {
			continue
		}
		if match(itemCoord) {
			items = append(items, *item)
		}
	}

	return items, rows.Err()
}

// FetchItemsForCoordinate returns the item at the coordinate plus its direct
// children.
func (s *Server) FetchItemsForCoordinate(ctx context.Context, coordID string) ([]domain.ServerItem, error) {
	center, err := domain.ParseID(coordID)
	if err != nil {
		return nil, err
	}
	return s.mapItems(ctx, center, func(coord domain.Coordinate) bool {
		return coord.WithinRegion(center, 1)
	})
}

// GetItemByCoordinate retrieves one item by coordinate id
func (s *Server) GetItemByCoordinate(ctx context.Context, coordID string) (*domain.ServerItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items WHERE coord_id = ?
	`, coordID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound.New("no item at %s", coordID)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetRootItemByID retrieves one item by database id
func (s *Server) GetRootItemByID(ctx context.Context, dbID string) (*domain.ServerItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items WHERE db_id = ?
	`, dbID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound.New("no item with id %s", dbID)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetDescendants returns everything strictly below the coordinate
func (s *Server) GetDescendants(ctx context.Context, coordID string) ([]domain.ServerItem, error) {
	ancestor, err := domain.ParseID(coordID)
	if err != nil {
		return nil, err
	}
	return s.mapItems(ctx, ancestor, func(coord domain.Coordinate) bool {
		return coord.IsDescendantOf(ancestor)
	})
}

// GetAncestors returns the chain from the coordinate's parent up to the root,
// nearest first
func (s *Server) GetAncestors(ctx context.Context, coordID string) ([]domain.ServerItem, error) {
	coord, err := domain.ParseID(coordID)
	if err != nil {
		return nil, err
	}
	var items []domain.ServerItem
	for parent, ok := coord.Parent(); ok; parent, ok = parent.Parent() {
		item, err := s.GetItemByCoordinate(ctx, parent.ID())
		if domain.ErrNotFound.Has(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// GetItemWithGenerations returns the subtree within the requested number of
// generations around the coordinate
func (s *Server) GetItemWithGenerations(ctx context.Context, req ports.GenerationsRequest) ([]domain.ServerItem, error) {
	center, err := domain.ParseID(req.CoordID)
	if err != nil {
		return nil, err
	}
	return s.mapItems(ctx, center, func(coord domain.Coordinate) bool {
		return coord.WithinRegion(center, req.Generations)
	})
}

// CreateItem stores a new item, assigning its database id
func (s *Server) CreateItem(ctx context.Context, req ports.CreateItemRequest) (*domain.ServerItem, error) {
	coord, err := domain.ParseID(req.Coordinates)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetItemByCoordinate(ctx, coord.ID())
	if err != nil && !domain.ErrNotFound.Has(err) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrServer.New("coordinate %s already occupied", coord.ID())
	}

	item := domain.ServerItem{
		ID:          uuid.NewString(),
		Coordinates: coord.ID(),
		Depth:       coord.Depth(),
		Title:       req.Title,
		Content:     req.Content,
		Preview:     req.Preview,
		Link:        req.Link,
		ParentID:    req.ParentID,
		ItemType:    req.ItemType,
		OwnerID:     req.OwnerID,
		Visibility:  req.Visibility,
	}
	if item.OwnerID == "" {
		item.OwnerID = coord.OwnerID
	}
	if item.Visibility == "" {
		item.Visibility = domain.VisibilityPublic
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (coord_id, db_id, parent_id, owner_id, group_id, depth, title, content, preview, link, item_type, visibility, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.Coordinates, item.ID, item.ParentID, item.OwnerID, coord.GroupID, item.Depth,
		item.Title, item.Content, item.Preview, item.Link, item.ItemType, item.Visibility,
		time.Now().Unix())
	if err != nil {
		return nil, domain.ErrServer.Wrap(err)
	}

	return &item, nil
}

// UpdateItem patches an item, relocating it when Coordinates is set
func (s *Server) UpdateItem(ctx context.Context, dbID string, req ports.UpdateItemRequest) (*domain.ServerItem, error) {
	item, err := s.GetRootItemByID(ctx, dbID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Content != nil {
		item.Content = *req.Content
	}
	if req.Preview != nil {
		item.Preview = *req.Preview
	}
	if req.Link != nil {
		item.Link = *req.Link
	}

	groupID := ""
	if req.Coordinates != nil {
		coord, err := domain.ParseID(*req.Coordinates)
		if err != nil {
			return nil, err
		}
		newID := coord.ID()
		if newID != item.Coordinates {
			existing, err := s.GetItemByCoordinate(ctx, newID)
			if err != nil && !domain.ErrNotFound.Has(err) {
				return nil, err
			}
			if existing != nil {
				return nil, domain.ErrServer.New("coordinate %s already occupied", newID)
			}
		}
		item.Coordinates = newID
		item.Depth = coord.Depth()
		groupID = coord.GroupID
	}

	if groupID != "" {
		_, err = s.db.ExecContext(ctx, `
			UPDATE items
			SET coord_id = ?, group_id = ?, depth = ?, title = ?, content = ?, preview = ?, link = ?, updated_at = ?
			WHERE db_id = ?
		`, item.Coordinates, groupID, item.Depth, item.Title, item.Content, item.Preview, item.Link,
			time.Now().Unix(), dbID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE items
			SET title = ?, content = ?, preview = ?, link = ?, updated_at = ?
			WHERE db_id = ?
		`, item.Title, item.Content, item.Preview, item.Link, time.Now().Unix(), dbID)
	}
	if err != nil {
		return nil, err
	}

	return item, nil
}

// DeleteItem removes an item
func (s *Server) DeleteItem(ctx context.Context, dbID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE db_id = ?`, dbID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound.New("no item with id %s", dbID)
	}
	return nil
}

// UpdateVisibilityWithDescendants sets visibility on an item and its whole
// subtree in one transaction
func (s *Server) UpdateVisibilityWithDescendants(ctx context.Context, dbID string, visibility string) error {
	root, err := s.GetRootItemByID(ctx, dbID)
	if err != nil {
		return err
	}

	descendants, err := s.GetDescendants(ctx, root.Coordinates)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	update := func(id string) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE items SET visibility = ?, updated_at = ? WHERE db_id = ?
		`, visibility, now, id)
		return err
	}

	if err := update(dbID); err != nil {
		return err
	}
	for _, item := range descendants {
		if err := update(item.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
