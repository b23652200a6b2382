package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Keys of the persisted client state. The layout mirrors what the storefront
// keeps in the browser: the cart collection, the bearer token and the user
// record, each JSON-encoded under its own key.
const (
	KeyCart  = "cart"
	KeyToken = "token"
	KeyUser  = "user"
)

type Entry struct {
	Key       string    `gorm:"primaryKey"  json:"key"`
	Value     string    `gorm:"not null"    json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Entry) TableName() string { return "kv_entries" }

// Store is the durable local key-value store both state containers write
// through to. One process owns the file; there is no concurrent writer.
type Store struct {
	DB *gorm.DB
}

// Open opens (or creates) the backing file. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate storage: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) PutRaw(ctx context.Context, key, value string) error {
	entry := Entry{Key: key, Value: value}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *Store) GetRaw(ctx context.Context, key string) (string, bool, error) {
	var entry Entry
	if err := s.DB.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.PutRaw(ctx, key, string(data))
}

// GetJSON reports (false, nil) for a missing key. A present but undecodable
// value is an error; callers decide whether that means "start empty".
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
}
