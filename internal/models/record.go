package models

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ProductRecord is the result of one scrape attempt. It is created once,
// filled in by the extractor (or a failure path) and never mutated after
// being handed to the reporter.
type ProductRecord struct {
	ID                 string    `json:"id"`
	URL                string    `json:"url"`
	Title              string    `json:"product_title,omitempty"`
	RegularPrice       string    `json:"regular_price,omitempty"`
	SubscribeSavePrice string    `json:"subscribe_save_price,omitempty"`
	Status             Status    `json:"extraction_status"`
	ScrapedAt          time.Time `json:"timestamp"`
	Error              string    `json:"error,omitempty"`
	Screenshot         string    `json:"screenshot,omitempty"`
}

func NewRecord(url string) ProductRecord {
	return ProductRecord{
		ID:        uuid.NewString(),
		URL:       url,
		ScrapedAt: time.Now(),
	}
}

// FailedRecord builds a terminal-failure record with a human-readable reason
// and an optional diagnostic screenshot reference.
func FailedRecord(url, reason, screenshot string) ProductRecord {
	rec := NewRecord(url)
	rec.Status = StatusFailed
	rec.Error = reason
	rec.Screenshot = screenshot
	return rec
}

// DeriveStatus classifies an extraction result. A record with a title is
// never failed; missing prices alone only downgrade it to partial.
func DeriveStatus(title, regularPrice, subscribeSavePrice string) Status {
	if title == "" {
		return StatusFailed
	}
	if regularPrice == "" && subscribeSavePrice == "" {
		return StatusPartial
	}
	return StatusSuccess
}

const timestampLayout = "2006-01-02 15:04:05"

// Timestamp renders ScrapedAt in the format used by both the JSON output and
// the batch workbook.
func (r ProductRecord) Timestamp() string {
	return r.ScrapedAt.Format(timestampLayout)
}

func (r ProductRecord) Succeeded() bool {
	return r.Status != StatusFailed
}
