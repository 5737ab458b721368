package assistant

import "errors"

var (
	ErrNotFound = errors.New("assistant: not found")
	// ErrVersionConflict means a concurrent publish/unpublish won the row.
	ErrVersionConflict = errors.New("assistant: version conflict")
)

// Assistant carries only the fields this subsystem owns or reads. The
// editing surface (prompts, RAG wiring, ...) lives elsewhere.
type Assistant struct {
	ID          int64
	Name        string
	Description string
	Owner       string

	// Publication state. Published is true iff GroupID and ConsumerName
	// are both set.
	Published    bool
	PublishedAt  int64 // unix seconds, 0 while unpublished
	GroupID      string
	GroupName    string
	ConsumerName string

	Version   int64 // bumped on every publication update
	CreatedAt int64
}

// Publication is the set of fields a publish/unpublish transition writes.
type Publication struct {
	Published    bool
	PublishedAt  int64
	GroupID      string
	GroupName    string
	ConsumerName string
}
