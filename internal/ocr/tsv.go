package ocr

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/vinscan/internal/vin"
)

type lineKey struct{ page, block, par, line string }

type lineAcc struct {
	words []string
	sum   float64
	n     int
}

// parseTSV groups tesseract word rows (level 5) into one TextBlock per line, in
// reading order. Line confidence is the mean of the word confidences; -1 when no
// word carried one.
func parseTSV(out string) []vin.TextBlock {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return nil
	}

	col := map[string]int{}
	for i, h := range strings.Split(lines[0], "\t") {
		col[strings.TrimSpace(h)] = i
	}
	need := []string{"level", "page_num", "block_num", "par_num", "line_num", "conf", "text"}
	for _, n := range need {
		if _, ok := col[n]; !ok {
			return nil
		}
	}

	var order []lineKey
	acc := map[lineKey]*lineAcc{}
	for _, ln := range lines[1:] {
		if ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < len(col) {
			continue
		}
		if cols[col["level"]] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[col["text"]])
		if text == "" {
			continue
		}
		k := lineKey{cols[col["page_num"]], cols[col["block_num"]], cols[col["par_num"]], cols[col["line_num"]]}
		a, ok := acc[k]
		if !ok {
			a = &lineAcc{}
			acc[k] = a
			order = append(order, k)
		}
		a.words = append(a.words, text)
		if v, err := strconv.ParseFloat(cols[col["conf"]], 64); err == nil && v >= 0 {
			a.sum += v
			a.n++
		}
	}

	blocks := make([]vin.TextBlock, 0, len(order))
	for _, k := range order {
		a := acc[k]
		conf := -1.0
		if a.n > 0 {
			conf = a.sum / float64(a.n)
		}
		blocks = append(blocks, vin.TextBlock{Text: strings.Join(a.words, " "), Confidence: conf})
	}
	return blocks
}
