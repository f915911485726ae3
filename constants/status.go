package constants

// ExtractionStatus is the canonical outcome stored with each audit-log row.
type ExtractionStatus string

// Stable values (store these exact strings in DB).
const (
	StatusFound        ExtractionStatus = "FOUND"
	StatusNotFound     ExtractionStatus = "NOT_FOUND"
	StatusInputError   ExtractionStatus = "INPUT_ERROR"   // rejected before OCR
	StatusServiceError ExtractionStatus = "SERVICE_ERROR" // OCR failed or timed out
)
