package scraper

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/metrics"
)

// DefaultIMDbURL is the ranked actor list seeded by default.
const DefaultIMDbURL = "https://www.imdb.com/list/ls054840033/"

// ProviderConfig configures a listing provider.
type ProviderConfig struct {
	Name      string
	URL       string
	Selectors Selectors
	// ArchivePrefix is prepended to archived page paths.
	ArchivePrefix string
}

// Provider fetches one listing page and extracts actor records from it.
// It satisfies actor.Source.
type Provider struct {
	cfg       ProviderConfig
	fetcher   actor.Fetcher
	extractor *Extractor
	archive   actor.BlobStore
	clock     actor.Clock
	logger    *zap.Logger
}

// NewProvider wires a Provider. archive and clock are optional.
func NewProvider(cfg ProviderConfig, fetcher actor.Fetcher, archive actor.BlobStore, clock actor.Clock, logger *zap.Logger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "IMDb"
	}
	if cfg.URL == "" {
		cfg.URL = DefaultIMDbURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: NewExtractor(cfg.Name, cfg.Selectors, logger),
		archive:   archive,
		clock:     clock,
		logger:    logger,
	}
}

// Name returns the provider label stamped on every record.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Scrape fetches the listing page once and extracts its records.
func (p *Provider) Scrape(ctx context.Context) ([]actor.Actor, error) {
	page, err := p.fetcher.Fetch(ctx, p.cfg.URL)
	if err != nil {
		metrics.ObserveFetch(p.cfg.URL, "error", 0)
		return nil, actor.Upstream(fmt.Sprintf("fetch %s listing page", p.cfg.Name), err)
	}
	metrics.ObserveFetch(p.cfg.URL, "ok", page.Duration)
	p.logger.Info("fetched listing page",
		zap.String("url", page.URL),
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.Body)),
		zap.Bool("headless", page.UsedHeadless),
		zap.Duration("duration", page.Duration),
	)

	p.archivePage(ctx, page)

	actors, err := p.extractor.Extract(bytes.NewReader(page.Body))
	if err != nil {
		return nil, err
	}
	p.logger.Info("extracted listing items", zap.Int("count", len(actors)))
	return actors, nil
}

func (p *Provider) archivePage(ctx context.Context, page actor.Page) {
	if p.archive == nil {
		return
	}
	objectPath := p.archivePath()
	uri, err := p.archive.PutObject(ctx, objectPath, "text/html; charset=utf-8", bytes.NewReader(page.Body))
	if err != nil {
		p.logger.Warn("failed to archive listing page", zap.String("path", objectPath), zap.Error(err))
		return
	}
	p.logger.Debug("archived listing page", zap.String("uri", uri))
}

func (p *Provider) archivePath() string {
	now := time.Now()
	if p.clock != nil {
		now = p.clock.Now()
	}
	name := now.UTC().Format("20060102T150405Z") + ".html"
	return path.Join(p.cfg.ArchivePrefix, strings.ToLower(p.cfg.Name), name)
}
