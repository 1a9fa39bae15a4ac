package domain

import "time"

// Customer is a CRM account. IDs are assigned by the remote collaborator.
type Customer struct {
	ID        int64     `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone" bson:"phone"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	IsActive  bool      `json:"isActive" bson:"is_active"`
}
