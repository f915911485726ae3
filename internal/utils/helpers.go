package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/entity"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

// StatusOf collapses a Result into the status stored with audit rows.
func StatusOf(res vin.Result) constants.ExtractionStatus {
	switch {
	case res.Found:
		return constants.StatusFound
	case res.Failure != nil && res.Failure.Kind == vin.FailureInput:
		return constants.StatusInputError
	case res.Failure != nil:
		return constants.StatusServiceError
	default:
		return constants.StatusNotFound
	}
}

// ExtractionMeta carries what the audit row needs beyond the Result itself.
type ExtractionMeta struct {
	RequestID   string
	Source      string
	ImageSHA256 string
	Engine      string
	StartedAt   time.Time
	Duration    time.Duration
}

func ToExtraction(res vin.Result, meta ExtractionMeta) *entity.Extraction {
	e := &entity.Extraction{
		CreatedAt:      meta.StartedAt,
		Source:         meta.Source,
		ImageSHA256:    meta.ImageSHA256,
		Engine:         meta.Engine,
		Status:         StatusOf(res),
		VIN:            res.VIN,
		Confidence:     res.Confidence,
		Manufacturer:   res.Diagnostics.Manufacturer,
		Strategy:       res.Diagnostics.Strategy,
		CheckDigit:     string(res.Diagnostics.CheckDigit),
		CandidateCount: res.Diagnostics.CandidateCount,
		RawText:        res.Diagnostics.RawText,
		DurationMS:     meta.Duration.Milliseconds(),
	}
	if res.Failure != nil {
		e.FailureMessage = res.Failure.Message
	}
	if b, err := json.Marshal(res.Diagnostics); err == nil {
		e.Diagnostics = b
	}
	return e
}

// ToStruct converts any JSON-marshalable value into a protobuf Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

// FromStruct is the inverse of ToStruct.
func FromStruct(s *structpb.Struct, v any) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	return json.Unmarshal(b, v)
}
