package domain

import "github.com/google/uuid"

// User and Category are read-only lookup entities from this service's
// perspective; their CRUD lifecycle lives elsewhere.

type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

type Category struct {
	ID   uuid.UUID
	Name string
}
