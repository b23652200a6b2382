package backend

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&Account{}, &Product{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

// Seed fills an empty catalog with a handful of spare parts so the client
// has something to browse out of the box.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []Product{
		{Name: "Front brake pad set", Brand: "Brembo", Category: "brakes", Price: 49.90, Stock: 120},
		{Name: "Oil filter", Brand: "Mann", Category: "engine", Price: 8.50, Stock: 400},
		{Name: "Timing belt kit", Brand: "Gates", Category: "engine", Price: 129.00, Stock: 35},
		{Name: "Shock absorber, rear", Brand: "Bilstein", Category: "suspension", Price: 87.30, Stock: 60},
		{Name: "Wiper blade 600mm", Brand: "Bosch", Category: "exterior", Price: 12.20, Stock: 250},
		{Name: "Spark plug, iridium", Brand: "NGK", Category: "engine", Price: 14.75, Stock: 500},
	}
	return db.Create(&products).Error
}
