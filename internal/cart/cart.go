package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/partshub/storefront/internal/events"
	"github.com/partshub/storefront/internal/models"
	"github.com/partshub/storefront/internal/notify"
	"github.com/partshub/storefront/internal/storage"
)

var ErrValidation = errors.New("validation")

// Key identifies a cart line. Same product id with a different size or color
// is a different key and therefore a different line.
type Key struct {
	ProductID string
	Size      string
	Color     string
}

func lineKey(l models.CartLine) Key {
	return Key{ProductID: l.Product.ID, Size: l.Size, Color: l.Color}
}

// Store is the single source of truth for the shopping cart. It holds at most
// one line per key and writes the whole collection through to durable storage
// on every mutation, so a restart reconstructs the exact same state.
type Store struct {
	mu    sync.Mutex
	lines []models.CartLine

	storage  *storage.Store
	notifier notify.Notifier
	producer *events.Producer
	log      *slog.Logger
}

// New restores the persisted cart. An unreadable persisted value is logged
// and treated as an empty cart, never as a failure.
func New(ctx context.Context, st *storage.Store, n notify.Notifier, p *events.Producer, log *slog.Logger) *Store {
	s := &Store{storage: st, notifier: n, producer: p, log: log}
	if _, err := st.GetJSON(ctx, storage.KeyCart, &s.lines); err != nil {
		log.Warn("cart restore failed, starting empty", "error", err)
		s.lines = nil
	}
	return s
}

// Add merges quantity into the line matching (product.ID, size, color) or
// appends a new line. A product without an id is an upstream bug: the call is
// a logged no-op with no user-facing notification.
func (s *Store) Add(ctx context.Context, product models.Product, quantity uint, size, color string) error {
	if product.ID == "" {
		s.log.Error("add to cart rejected", "reason", "product without id", "name", product.Name)
		return fmt.Errorf("product id must not be empty: %w", ErrValidation)
	}
	if quantity == 0 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{ProductID: product.ID, Size: size, Color: color}
	merged := false
	for i := range s.lines {
		if lineKey(s.lines[i]) == key {
			s.lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		s.lines = append(s.lines, models.CartLine{
			Product:  product,
			Quantity: quantity,
			Size:     size,
			Color:    color,
		})
	}

	if err := s.persist(ctx); err != nil {
		return err
	}

	if merged {
		s.notifier.Success(fmt.Sprintf("%s updated in cart", product.Name))
		s.publish(ctx, "cart_item_updated", product.ID, quantity)
	} else {
		s.notifier.Success(fmt.Sprintf("%s added to cart", product.Name))
		s.publish(ctx, "cart_item_added", product.ID, quantity)
	}
	return nil
}

// Remove drops the line matching the key. Removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, productID, size, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, productID, size, color)
}

func (s *Store) removeLocked(ctx context.Context, productID, size, color string) error {
	key := Key{ProductID: productID, Size: size, Color: color}
	for i := range s.lines {
		if lineKey(s.lines[i]) != key {
			continue
		}
		name := s.lines[i].Product.Name
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		if err := s.persist(ctx); err != nil {
			return err
		}
		s.notifier.Info(fmt.Sprintf("%s removed from cart", name))
		s.publish(ctx, "cart_item_removed", productID, 0)
		return nil
	}
	return nil
}

// UpdateQuantity sets the matching line's quantity to exactly the given
// value. Zero or negative means "not in cart" and removes the line. A missing
// key is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int, size, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, productID, size, color)
	}

	key := Key{ProductID: productID, Size: size, Color: color}
	for i := range s.lines {
		if lineKey(s.lines[i]) != key {
			continue
		}
		s.lines[i].Quantity = uint(quantity)
		if err := s.persist(ctx); err != nil {
			return err
		}
		s.publish(ctx, "cart_item_updated", productID, uint(quantity))
		return nil
	}
	return nil
}

// Clear empties the cart and removes the persisted representation.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	if err := s.storage.Delete(ctx, storage.KeyCart); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.notifier.Info("Cart cleared")
	s.publish(ctx, "cart_cleared", "", 0)
	return nil
}

// Total is computed fresh on every call; a zero price contributes nothing.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, l := range s.lines {
		total += l.Product.Price * float64(l.Quantity)
	}
	return total
}

// Count is the total item count across lines, not the number of lines.
func (s *Store) Count() uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

// Lines returns a copy in insertion order.
func (s *Store) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.storage.PutJSON(ctx, storage.KeyCart, s.lines); err != nil {
		s.log.Error("cart persist failed", "error", err)
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, eventType, productID string, quantity uint) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event := map[string]any{
		"type":       eventType,
		"product_id": productID,
		"quantity":   quantity,
	}
	if err := s.producer.PublishEvent(ctx, events.TopicCartEvents, productID, event); err != nil {
		s.log.Error("kafka publish error", "error", err)
	}
}
