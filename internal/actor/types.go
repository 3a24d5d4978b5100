package actor

import (
	"net/http"
	"strings"
	"time"
)

// Actor is a ranked actor record.
type Actor struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Rank      int        `json:"rank"`
	Bio       string     `json:"bio"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	ImageURL  string     `json:"imageUrl"`
	KnownFor  []string   `json:"knownFor"`
	Source    string     `json:"source"`
}

// Clone returns a deep copy so callers never share the KnownFor backing array
// or the BirthDate pointer with a store.
func (a Actor) Clone() Actor {
	cp := a
	if a.KnownFor != nil {
		cp.KnownFor = append([]string(nil), a.KnownFor...)
	}
	if a.BirthDate != nil {
		bd := *a.BirthDate
		cp.BirthDate = &bd
	}
	return cp
}

// Filter narrows a listing. Nil fields are not applied.
type Filter struct {
	Name    string
	MinRank *int
	MaxRank *int
}

// Matches reports whether a satisfies every populated criterion.
// Name matching is a case-sensitive substring test.
func (f Filter) Matches(a Actor) bool {
	if f.Name != "" && !strings.Contains(a.Name, f.Name) {
		return false
	}
	if f.MinRank != nil && a.Rank < *f.MinRank {
		return false
	}
	if f.MaxRank != nil && a.Rank > *f.MaxRank {
		return false
	}
	return true
}

// Pagination bounds accepted by the listing endpoints.
const (
	MinPageSize     = 1
	MaxPageSize     = 100
	DefaultPageSize = 10
)

// PageRequest selects a 1-based page of a filtered listing.
type PageRequest struct {
	Number int
	Size   int
}

// Offset returns how many filtered records precede the page.
func (p PageRequest) Offset() int {
	return (p.Number - 1) * p.Size
}

// ChangeType labels a mutation published to subscribers.
type ChangeType string

// Change types emitted by the query service.
const (
	ChangeCreated ChangeType = "actor.created"
	ChangeUpdated ChangeType = "actor.updated"
	ChangeDeleted ChangeType = "actor.deleted"
)

// ChangeEvent is the payload published after a successful mutation.
type ChangeEvent struct {
	ID         string     `json:"id"`
	Type       ChangeType `json:"type"`
	ActorID    int        `json:"actorId"`
	Rank       int        `json:"rank"`
	Name       string     `json:"name,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Page is a fetched document.
type Page struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
