// Package actor defines the core types, collaborator interfaces and error
// kinds shared by the store, scraper, seeding and HTTP layers.
package actor
