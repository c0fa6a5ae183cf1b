package storage

import "time"

// Change is one journal row.
type Change struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`     // add_routine, add_course, add_faculty, add_bus
	Document  string    `json:"document"` // dataset file name
	Key       string    `json:"key"`
	Payload   string    `json:"payload"` // compact JSON of the appended record
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
