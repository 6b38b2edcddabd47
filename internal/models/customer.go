package models

// Customer is a person the store sells to. Purchase aggregates are computed
// from sales at query time, not stored here.
type Customer struct {
	BaseModel
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `gorm:"uniqueIndex" json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	Sales     []Sale `json:"sales,omitempty"`
}
