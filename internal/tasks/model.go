package tasks

// Task is the persisted to-do record. Description is nil when unset.
type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}
