package actor

import (
	"context"
	"io"
	"time"
)

// Store holds actor records and enforces rank uniqueness.
type Store interface {
	Get(ctx context.Context, id int) (Actor, error)
	ListAll(ctx context.Context) ([]Actor, error)
	List(ctx context.Context, filter Filter, page PageRequest) ([]Actor, int, error)
	Add(ctx context.Context, a Actor) (Actor, error)
	AddBatch(ctx context.Context, actors []Actor) ([]Actor, error)
	Update(ctx context.Context, id int, a Actor) (Actor, error)
	Delete(ctx context.Context, id int) error
	ExistsByRank(ctx context.Context, rank int, excludeID *int) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Source produces actor records from an external provider.
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]Actor, error)
}

// Fetcher retrieves a single document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// BlobStore archives raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes change events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces event IDs.
type IDGenerator interface {
	NewID() (string, error)
}
