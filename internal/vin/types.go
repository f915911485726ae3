package vin

// TextBlock is one line of OCR output.
type TextBlock struct {
	Text string `json:"text"`
	// Confidence is on the engine's 0..100 scale. Negative means the engine reported none.
	Confidence float64 `json:"confidence"`
}

// MatchStrategy names the pattern family that produced a candidate.
type MatchStrategy int

const (
	StrategyDirect MatchStrategy = iota + 1
	StrategyLabeled
	StrategyWord
)

func (s MatchStrategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyLabeled:
		return "labeled"
	case StrategyWord:
		return "word"
	default:
		return "unknown"
	}
}

// Candidate is a provisional VIN string before validation.
type Candidate struct {
	Text     string
	Strategy MatchStrategy
	// SourceBlocks holds indexes of the blocks whose compacted text contains Text.
	SourceBlocks []int
	// Order is the position in generation order.
	Order int
}

// ScoredCandidate is a Candidate that passed shape validation.
// Base and Confidence are on the internal 0..100 scale. Rank adds the selection
// bonuses to Base and can exceed 100 (up to 115).
type ScoredCandidate struct {
	Candidate
	Base          float64
	Confidence    float64
	Rank          float64
	PrefixMatched bool
	Manufacturer  string
}

type FailureKind string

const (
	// FailureInput covers undecodable or oversized images; nothing was sent to OCR.
	FailureInput FailureKind = "INPUT"
	// FailureService covers OCR timeouts and upstream errors.
	FailureService FailureKind = "SERVICE"
)

type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the terminal output of one extraction request.
type Result struct {
	Found bool   `json:"found"`
	VIN   string `json:"vin,omitempty"`
	// Confidence is on the external 0.0..1.0 scale.
	Confidence  float64     `json:"confidence"`
	Diagnostics Diagnostics `json:"diagnostics"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Failure     *Failure    `json:"failure,omitempty"`
}

// Unavailable reports whether the result came from an upstream failure rather than a miss.
func (r Result) Unavailable() bool {
	return r.Failure != nil && r.Failure.Kind == FailureService
}

type BlockDiagnostic struct {
	Index       int     `json:"index"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	ContainsVIN bool    `json:"contains_vin"`
}

type CandidateDiagnostic struct {
	Text       string   `json:"text"`
	Strategy   string   `json:"strategy"`
	Violations []string `json:"violations,omitempty"`
	Rank       float64  `json:"rank,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

type Diagnostics struct {
	RawText        string                `json:"raw_text"`
	Blocks         []BlockDiagnostic     `json:"blocks"`
	CandidateCount int                   `json:"candidate_count"`
	Rejected       []CandidateDiagnostic `json:"rejected,omitempty"`
	RunnersUp      []CandidateDiagnostic `json:"runners_up,omitempty"`
	Strategy       string                `json:"strategy,omitempty"`
	Manufacturer   string                `json:"manufacturer,omitempty"`
	CheckDigit     CheckDigitStatus      `json:"check_digit,omitempty"`
}

const (
	SuggestRetakePhoto = "Retake the photo with the VIN plate filling the frame"
	SuggestLighting    = "Improve lighting and avoid glare or shadows on the plate"
	SuggestManualEntry = "Type the 17-character VIN manually"
	SuggestRetryLater  = "Try again in a moment; text recognition is temporarily unavailable"
	SuggestSmallerFile = "Send a smaller or differently encoded photo (JPEG or PNG)"
)
