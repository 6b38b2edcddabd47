package models

type Category struct {
	BaseModel
	Name         string    `json:"name"`
	Slug         string    `gorm:"uniqueIndex" json:"slug"`
	Description  string    `json:"description"`
	ProductCount int       `json:"product_count"`
	Products     []Product `json:"products,omitempty"`
}

type Brand struct {
	BaseModel
	Name         string    `json:"name"`
	Country      string    `json:"country"`
	ProductCount int       `json:"product_count"`
	Products     []Product `json:"products,omitempty"`
}
