package models

const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// Product is the catalog snapshot a cart line carries. It is frozen at the
// moment the line is created; later catalog edits do not reach the cart.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Brand    string   `json:"brand,omitempty"`
	Category string   `json:"category,omitempty"`
	Price    float64  `json:"price"`
	Stock    uint     `json:"stock"`
	Images   []string `json:"images,omitempty"`
}

// CartLine is one purchasable configuration: the same product with a
// different size or color is a different line.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity uint    `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Token string `json:"token,omitempty"`
}
