package scraper

// Selectors are the CSS selectors used to pick fields out of a listing page.
type Selectors struct {
	Item     string `mapstructure:"item"`
	Title    string `mapstructure:"title"`
	Image    string `mapstructure:"image"`
	KnownFor string `mapstructure:"known_for"`
	Bio      string `mapstructure:"bio"`
}

// DefaultSelectors target the IMDb list page markup. They are fragile and
// break whenever IMDb changes its markup; override them through config
// (scraper.selectors.*) rather than code when that happens.
var DefaultSelectors = Selectors{
	Item:     "li.ipc-metadata-list-summary-item",
	Title:    "[data-testid='nlib-title'] h3",
	Image:    "img[class*='ipc-image']",
	KnownFor: "[data-testid='nlib-known-for-title']",
	Bio:      "[data-testid='dli-item-description'] div[class*='ipc-html-content-inner-div']",
}

// WithDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	if s.Item == "" {
		s.Item = DefaultSelectors.Item
	}
	if s.Title == "" {
		s.Title = DefaultSelectors.Title
	}
	if s.Image == "" {
		s.Image = DefaultSelectors.Image
	}
	if s.KnownFor == "" {
		s.KnownFor = DefaultSelectors.KnownFor
	}
	if s.Bio == "" {
		s.Bio = DefaultSelectors.Bio
	}
	return s
}
