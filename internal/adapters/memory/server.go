// Package memory implements the server service over an in-process map, for
// tests and the demo mode.
package memory

import (
	"context"
	"strconv"
	"sync"

	"hexmap/internal/domain"
	"hexmap/internal/ports"
)

// Server is an in-memory authoritative store keyed by coordinate id.
type Server struct {
	mu     sync.Mutex
	items  map[string]domain.ServerItem
	nextID int
	err    error
}

// Ensure Server implements ServerService.
var _ ports.ServerService = (*Server)(nil)

// New creates an empty server.
func New() *Server {
	return &Server{items: make(map[string]domain.ServerItem), nextID: 1}
}

// Seed inserts items directly, assigning ids to any without one.
func (s *Server) Seed(items ...domain.ServerItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if item.ID == "" {
			item.ID = strconv.Itoa(s.nextID)
			s.nextID++
		}
		coord := domain.MustParseID(item.Coordinates)
		item.Coordinates = coord.ID()
		item.Depth = coord.Depth()
		if item.OwnerID == "" {
			item.OwnerID = coord.OwnerID
		}
		s.items[item.Coordinates] = item
	}
}

// FailWith makes every subsequent call return err; nil restores normal
// operation. Lets tests and demos exercise rollback and offline paths.
func (s *Server) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Server) failing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FetchItemsForCoordinate returns the item at the coordinate plus its direct
// children.
func (s *Server) FetchItemsForCoordinate(_ context.Context, coordID string) ([]domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	center, err := domain.ParseID(coordID)
	if err != nil {
		return nil, err
	}
	return s.collect(func(coord domain.Coordinate) bool {
		return coord.WithinRegion(center, 1)
	}), nil
}

// GetItemByCoordinate returns one item.
func (s *Server) GetItemByCoordinate(_ context.Context, coordID string) (*domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[coordID]
	if !ok {
		return nil, domain.ErrNotFound.New("no item at %s", coordID)
	}
	return &item, nil
}

// GetRootItemByID resolves an opaque database id.
func (s *Server) GetRootItemByID(_ context.Context, dbID string) (*domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == dbID {
			out := item
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound.New("no item with id %s", dbID)
}

// GetDescendants returns everything strictly below the coordinate.
func (s *Server) GetDescendants(_ context.Context, coordID string) ([]domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	ancestor, err := domain.ParseID(coordID)
	if err != nil {
		return nil, err
	}
	return s.collect(func(coord domain.Coordinate) bool {
		return coord.IsDescendantOf(ancestor)
	}), nil
}

// GetAncestors returns the chain from the coordinate's parent up to the
// root, nearest first.
func (s *Server) GetAncestors(_ context.Context, coordID string) ([]domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	coord, err := domain.ParseID(coordID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ServerItem
	for parent, ok := coord.Parent(); ok; parent, ok = parent.Parent() {
		if item, cached := s.items[parent.ID()]; cached {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetItemWithGenerations returns the subtree within the requested number of
// generations around the coordinate.
func (s *Server) GetItemWithGenerations(_ context.Context, req ports.GenerationsRequest) ([]domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	center, err := domain.ParseID(req.CoordID)
	if err != nil {
		return nil, err
	}
	return s.collect(func(coord domain.Coordinate) bool {
		return coord.WithinRegion(center, req.Generations)
	}), nil
}

// CreateItem stores a new item and assigns its id.
func (s *Server) CreateItem(_ context.Context, req ports.CreateItemRequest) (*domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	coord, err := domain.ParseID(req.Coordinates)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coordID := coord.ID()
	if _, exists := s.items[coordID]; exists {
		return nil, domain.ErrServer.New("coordinate %s already occupied", coordID)
	}
	item := domain.ServerItem{
		ID:          strconv.Itoa(s.nextID),
		Coordinates: coordID,
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
	s.nextID++
	s.items[coordID] = item
	return &item, nil
}

// UpdateItem patches an item, relocating it when Coordinates is set.
func (s *Server) UpdateItem(_ context.Context, dbID string, req ports.UpdateItemRequest) (*domain.ServerItem, error) {
	if err := s.failing(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for coordID, item := range s.items {
		if item.ID != dbID {
			continue
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
		if req.Coordinates != nil {
			coord, err := domain.ParseID(*req.Coordinates)
			if err != nil {
				return nil, err
			}
			newID := coord.ID()
			if _, occupied := s.items[newID]; occupied && newID != coordID {
				return nil, domain.ErrServer.New("coordinate %s already occupied", newID)
			}
			delete(s.items, coordID)
			item.Coordinates = newID
			item.Depth = coord.Depth()
			coordID = newID
		}
		s.items[coordID] = item
		return &item, nil
	}
	return nil, domain.ErrNotFound.New("no item with id %s", dbID)
}

// DeleteItem removes an item.
func (s *Server) DeleteItem(_ context.Context, dbID string) error {
	if err := s.failing(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for coordID, item := range s.items {
		if item.ID == dbID {
			delete(s.items, coordID)
			return nil
		}
	}
	return domain.ErrNotFound.New("no item with id %s", dbID)
}

// UpdateVisibilityWithDescendants sets visibility on an item and its whole
// subtree in one call.
func (s *Server) UpdateVisibilityWithDescendants(_ context.Context, dbID string, visibility string) error {
	if err := s.failing(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var root *domain.Coordinate
	for _, item := range s.items {
		if item.ID == dbID {
			coord := domain.MustParseID(item.Coordinates)
			root = &coord
			break
		}
	}
	if root == nil {
		return domain.ErrNotFound.New("no item with id %s", dbID)
	}
	for coordID, item := range s.items {
		coord := domain.MustParseID(item.Coordinates)
		if coord.Equal(*root) || coord.IsDescendantOf(*root) {
			item.Visibility = visibility
			s.items[coordID] = item
		}
	}
	return nil
}

func (s *Server) collect(match func(domain.Coordinate) bool) []domain.ServerItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ServerItem
	for _, item := range s.items {
		coord, err := domain.ParseID(item.Coordinates)
		if err != nil {
			continue
		}
		if match(coord) {
			out = append(out, item)
		}
	}
	return out
}
