package backend

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Account struct {
	ID           string `gorm:"primaryKey"       json:"id"`
	Email        string `gorm:"unique;not null"  json:"email"`
	Name         string `gorm:"not null"         json:"name"`
	PasswordHash string `gorm:"not null"         json:"-"`
	Role         string `gorm:"not null"         json:"role"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (Account) TableName() string { return "accounts" }

type Product struct {
	ID       string  `gorm:"primaryKey"  json:"id"`
	Name     string  `gorm:"not null"    json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Category string  `json:"category,omitempty"`
	Price    float64 `gorm:"not null"    json:"price"`
	Stock    uint    `json:"stock"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (Product) TableName() string { return "products" }
