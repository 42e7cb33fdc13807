package todo

import "time"

// Item is a persisted to-do entry.
type Item struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	IsComplete  bool       `db:"is_complete"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
	CreatedBy   *string    `db:"created_by"`
	UpdatedBy   *string    `db:"updated_by"`
}

// Summary is the reduced projection used by list endpoints.
type Summary struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	IsComplete bool      `json:"isComplete"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Response is the full projection returned for single-item reads and writes.
type Response struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsComplete  bool       `json:"isComplete"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	CreatedBy   *string    `json:"createdBy"`
	UpdatedBy   *string    `json:"updatedBy"`
}

// CreateInput carries the client-supplied fields for a new item.
type CreateInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// UpdateInput carries a full replacement of the mutable fields.
type UpdateInput struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	IsComplete  bool    `json:"isComplete"`
}

// Summary projects the item to its list shape.
func (i Item) Summary() Summary {
	return Summary{
		ID:         i.ID,
		Title:      i.Title,
		IsComplete: i.IsComplete,
		CreatedAt:  i.CreatedAt,
	}
}

// Response projects the item to its full shape.
func (i Item) Response() Response {
	return Response{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		IsComplete:  i.IsComplete,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		CreatedBy:   i.CreatedBy,
		UpdatedBy:   i.UpdatedBy,
	}
}
