package directory

import "github.com/google/uuid"

// Category is a service category offered on the marketplace.
type Category struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Slug string    `json:"slug" db:"slug"`
	Icon string    `json:"icon,omitempty" db:"icon"`
}

// City is a city where providers operate.
type City struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	State string    `json:"state" db:"state"`
}
