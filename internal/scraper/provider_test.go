package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/storage/memory"
)

type fakeFetcher struct {
	body  []byte
	err   error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (actor.Page, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return actor.Page{}, f.err
	}
	return actor.Page{
		URL:        url,
		StatusCode: http.StatusOK,
		Body:       f.body,
		Duration:   15 * time.Millisecond,
	}, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type brokenArchive struct{}

func (brokenArchive) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestProviderScrapeArchivesAndExtracts(t *testing.T) {
	t.Parallel()

	body := readFixture(t, "listing.html")
	fetcher := &fakeFetcher{body: body}
	archive := memory.NewBlobStore()
	clk := fixedClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}

	p := NewProvider(ProviderConfig{ArchivePrefix: "raw"}, fetcher, archive, clk, nil)
	assert.Equal(t, "IMDb", p.Name())

	actors, err := p.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, actors, 5)
	assert.Equal(t, []string{DefaultIMDbURL}, fetcher.calls)

	stored, ok := archive.Object("raw/imdb/20250314T092653Z.html")
	require.True(t, ok)
	assert.Equal(t, body, stored)
}

func TestProviderScrapeFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("dial tcp: i/o timeout")}
	archive := memory.NewBlobStore()
	p := NewProvider(ProviderConfig{Name: "IMDb", URL: "https://example.test/list"}, fetcher, archive, nil, nil)

	actors, err := p.Scrape(context.Background())
	require.Error(t, err)
	assert.Nil(t, actors)
	assert.ErrorIs(t, err, actor.ErrUpstreamFetch)
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Empty(t, archive.Paths())
}

func TestProviderScrapeIgnoresArchiveFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: readFixture(t, "listing.html")}
	p := NewProvider(ProviderConfig{}, fetcher, brokenArchive{}, nil, nil)

	actors, err := p.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, actors, 5)
}

func TestProviderScrapeEmptyPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: readFixture(t, "empty.html")}
	p := NewProvider(ProviderConfig{}, fetcher, nil, nil, nil)

	actors, err := p.Scrape(context.Background())
	require.NoError(t, err)
	assert.Empty(t, actors)
}
