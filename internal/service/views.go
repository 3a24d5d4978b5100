package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/ShalomGure/actors-api/internal/actor"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD. RFC3339 timestamps are
// accepted on input and truncated to their date.
type Date struct {
	time.Time
}

// NewDate returns the date part of t.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, actor.Validationf("birthDate %q must be formatted as YYYY-MM-DD.", s)
	}
	return NewDate(t), nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return actor.Validationf("birthDate must be a string formatted as YYYY-MM-DD.")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dateFrom(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	d := NewDate(*t)
	return &d
}

// Summary is the listing view of an actor.
type Summary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Detail is the full view of an actor.
type Detail struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Rank      int      `json:"rank"`
	Bio       string   `json:"bio"`
	BirthDate *Date    `json:"birthDate"`
	ImageURL  string   `json:"imageUrl"`
	KnownFor  []string `json:"knownFor"`
	Source    string   `json:"source"`
}

// PagedResult is one page of summaries plus the filtered total.
type PagedResult struct {
	Data       []Summary `json:"data"`
	TotalCount int       `json:"totalCount"`
	PageNumber int       `json:"pageNumber"`
	PageSize   int       `json:"pageSize"`
}

// CreateInput carries the fields accepted when creating an actor.
type CreateInput struct {
	Name      string   `json:"name"`
	Rank      int      `json:"rank"`
	Bio       string   `json:"bio"`
	BirthDate *Date    `json:"birthDate"`
	ImageURL  string   `json:"imageUrl"`
	KnownFor  []string `json:"knownFor"`
	Source    string   `json:"source"`
}

// UpdateInput carries the replaceable fields of an actor. Source is not
// among them.
type UpdateInput struct {
	Name      string   `json:"name"`
	Rank      int      `json:"rank"`
	Bio       string   `json:"bio"`
	BirthDate *Date    `json:"birthDate"`
	ImageURL  string   `json:"imageUrl"`
	KnownFor  []string `json:"knownFor"`
}

func toSummary(a actor.Actor) Summary {
	return Summary{ID: a.ID, Name: a.Name}
}

func toDetail(a actor.Actor) Detail {
	knownFor := a.KnownFor
	if knownFor == nil {
		knownFor = []string{}
	}
	return Detail{
		ID:        a.ID,
		Name:      a.Name,
		Rank:      a.Rank,
		Bio:       a.Bio,
		BirthDate: dateFrom(a.BirthDate),
		ImageURL:  a.ImageURL,
		KnownFor:  knownFor,
		Source:    a.Source,
	}
}
