package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/vinscan/constants"
)

// Extraction is one audit-log row: the outcome of a single image extraction.
type Extraction struct {
	ID             uuid.UUID                  `json:"id"`
	CreatedAt      time.Time                  `json:"created_at"`
	Source         string                     `json:"source"`
	ImageSHA256    string                     `json:"image_sha256"`
	Engine         string                     `json:"engine"`
	Status         constants.ExtractionStatus `json:"status"`
	VIN            string                     `json:"vin,omitempty"`
	Confidence     float64                    `json:"confidence"`
	Manufacturer   string                     `json:"manufacturer,omitempty"`
	Strategy       string                     `json:"strategy,omitempty"`
	CheckDigit     string                     `json:"check_digit,omitempty"`
	CandidateCount int                        `json:"candidate_count"`
	FailureMessage string                     `json:"failure_message,omitempty"`
	RawText        string                     `json:"raw_text,omitempty"`
	DurationMS     int64                      `json:"duration_ms"`
	Diagnostics    json.RawMessage            `json:"diagnostics,omitempty"`
}

func (e *Extraction) Found() bool { return e.Status == constants.StatusFound }
