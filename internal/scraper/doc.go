// Package scraper turns a provider's ranked listing page into actor records.
//
// Extraction is selector driven. Each candidate item node is handled in
// isolation: an item without a title is skipped silently, an item that fails
// to extract is dropped with a warning, and neither aborts the batch. Only a
// failed fetch or an unreadable document fails the whole run.
package scraper
