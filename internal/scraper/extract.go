package scraper

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/metrics"
)

var errEmptyName = errors.New("title has no name")

// Extractor parses listing documents into actor records.
type Extractor struct {
	source    string
	selectors Selectors
	logger    *zap.Logger
}

// NewExtractor builds an Extractor that tags every record with source.
func NewExtractor(source string, selectors Selectors, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		source:    source,
		selectors: selectors.WithDefaults(),
		logger:    logger,
	}
}

// Extract reads one listing document and returns its records in document
// order. Identifiers are left at zero for the store to assign. A document
// without matching items yields an empty slice.
func (e *Extractor) Extract(r io.Reader) ([]actor.Actor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, actor.Upstream("parse listing page", err)
	}

	items := doc.Find(e.selectors.Item)
	actors := make([]actor.Actor, 0, items.Length())
	fallbackRank := 1
	items.Each(func(position int, item *goquery.Selection) {
		a, ok, err := e.extractItem(item, fallbackRank)
		switch {
		case err != nil:
			metrics.ObserveExtractedItem(e.source, metrics.ItemFailed)
			e.logger.Warn("dropping malformed listing item",
				zap.Int("position", position),
				zap.Int("rank", fallbackRank),
				zap.Error(err),
			)
		case !ok:
			metrics.ObserveExtractedItem(e.source, metrics.ItemSkipped)
			e.logger.Debug("skipping listing item without title", zap.Int("position", position))
		default:
			metrics.ObserveExtractedItem(e.source, metrics.ItemExtracted)
			actors = append(actors, a)
			fallbackRank++
		}
	})
	return actors, nil
}

// extractItem returns ok=false with a nil error when the node carries no
// title and therefore is not an actor entry.
func (e *Extractor) extractItem(item *goquery.Selection, fallbackRank int) (a actor.Actor, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			a, ok, err = actor.Actor{}, false, fmt.Errorf("extract item: %v", rec)
		}
	}()

	title := item.Find(e.selectors.Title).First()
	if title.Length() == 0 {
		return actor.Actor{}, false, nil
	}
	rank, name := ParseTitle(title.Text(), fallbackRank)
	if name == "" {
		return actor.Actor{}, false, errEmptyName
	}

	imageURL, _ := item.Find(e.selectors.Image).First().Attr("src")

	knownFor := []string{}
	if kf := cleanText(item.Find(e.selectors.KnownFor).First()); kf != "" {
		knownFor = append(knownFor, kf)
	}

	return actor.Actor{
		Name:     name,
		Rank:     rank,
		Bio:      cleanText(item.Find(e.selectors.Bio).First()),
		ImageURL: strings.TrimSpace(imageURL),
		KnownFor: knownFor,
		Source:   e.source,
	}, true, nil
}

// ParseTitle splits "<rank>. <name>". Without a numeric prefix the whole
// text is the name and fallbackRank is used.
func ParseTitle(text string, fallbackRank int) (int, string) {
	text = strings.TrimSpace(text)
	prefix, rest, found := strings.Cut(text, ".")
	if found && prefix != "" {
		if rank, err := strconv.Atoi(strings.TrimSpace(prefix)); err == nil {
			return rank, strings.TrimSpace(rest)
		}
	}
	return fallbackRank, text
}

// cleanText returns the entity-decoded, trimmed text of sel. The HTML parser
// has already decoded character references.
func cleanText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}
