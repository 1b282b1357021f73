package scraper

import (
	"context"
	"errors"

	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
)

var (
	ErrInvalidURL        = errors.New("invalid Amazon UK URL")
	ErrNavigationTimeout = errors.New("product page failed to load")
	ErrLocationFailed    = errors.New("location change failed")
	ErrBlocked           = errors.New("blocked by anti-bot interstitial")
	ErrPersistence       = errors.New("failed to persist results")
)

// ProductScraper is what the batch runner needs from a scraping session: one
// record per URL, failures folded into the record rather than returned.
type ProductScraper interface {
	ScrapeNext(ctx context.Context, rawURL string) models.ProductRecord
}
