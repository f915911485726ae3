package vin

// Pipeline turns OCR text blocks into a Result. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	scorer *Scorer
}

type Option func(*Pipeline)

// WithPrefixTable swaps the manufacturer lookup; nil disables the prefix bonus.
func WithPrefixTable(t PrefixTable) Option {
	return func(p *Pipeline) {
		p.scorer = NewScorer(t)
	}
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{scorer: NewScorer(DefaultPrefixTable)}
	for _, o := range opts {
		o(p)
	}
	return p
}

var defaultPipeline = NewPipeline()

// Extract runs the default pipeline.
func Extract(blocks []TextBlock) Result {
	return defaultPipeline.Run(blocks)
}

// Run normalizes, generates, validates, scores and selects. Zero blocks is a
// normal not-found outcome.
func (p *Pipeline) Run(blocks []TextBlock) Result {
	raw := joinBlocks(blocks)
	candidates := GenerateCandidates(NormalizeVariants(raw), blocks)

	diag := Diagnostics{
		RawText:        raw,
		Blocks:         blockDiagnostics(blocks),
		CandidateCount: len(candidates),
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if v := ShapeViolations(c.Text); len(v) > 0 {
			diag.Rejected = append(diag.Rejected, CandidateDiagnostic{
				Text:       c.Text,
				Strategy:   c.Strategy.String(),
				Violations: v,
			})
			continue
		}
		scored = append(scored, p.scorer.Score(c, blocks))
	}

	best, runnersUp, ok := Select(scored)
	if !ok {
		return NotFound(diag)
	}

	for _, i := range best.SourceBlocks {
		diag.Blocks[i].ContainsVIN = true
	}
	for _, r := range runnersUp {
		diag.RunnersUp = append(diag.RunnersUp, CandidateDiagnostic{
			Text:       r.Text,
			Strategy:   r.Strategy.String(),
			Rank:       r.Rank,
			Confidence: toUnitConfidence(r.Confidence),
		})
	}
	diag.Strategy = best.Strategy.String()
	diag.Manufacturer = best.Manufacturer
	diag.CheckDigit = CheckDigitOf(best.Text)

	return Result{
		Found:       true,
		VIN:         best.Text,
		Confidence:  toUnitConfidence(best.Confidence),
		Diagnostics: diag,
	}
}

func blockDiagnostics(blocks []TextBlock) []BlockDiagnostic {
	out := make([]BlockDiagnostic, len(blocks))
	for i, b := range blocks {
		out[i] = BlockDiagnostic{Index: i, Text: b.Text, Confidence: b.Confidence}
	}
	return out
}

// NotFound builds the miss result; the raw text stays in diag for manual transcription.
func NotFound(diag Diagnostics) Result {
	return Result{
		Found:       false,
		Diagnostics: diag,
		Suggestions: []string{SuggestRetakePhoto, SuggestLighting, SuggestManualEntry},
	}
}

// InputFailure reports an image rejected before OCR.
func InputFailure(msg string) Result {
	return Result{
		Failure:     &Failure{Kind: FailureInput, Message: msg},
		Suggestions: []string{SuggestSmallerFile, SuggestManualEntry},
	}
}

// ServiceFailure reports an OCR outage or timeout.
func ServiceFailure(msg string) Result {
	return Result{
		Failure:     &Failure{Kind: FailureService, Message: msg},
		Suggestions: []string{SuggestRetryLater, SuggestManualEntry},
	}
}
