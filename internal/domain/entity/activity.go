package entity

import "time"

// Activity entrada del registro de actividades de operación (una por cambio de estado).
type Activity struct {
	ID          int64
	ItemID      int64
	UserID      string
	Description string
	NewState    State
	NewSubState SubState
	CreatedAt   time.Time
}
