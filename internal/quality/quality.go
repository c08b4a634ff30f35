package quality

import (
	"math"
	"strings"
	"unicode"
)

// Assessment scores how much recognized page text looks like real text.
// It never changes the text; callers use it for reporting and logs.
type Assessment struct {
	Score     float64
	Legible   bool
	Reasons   []string
	WordCount int
}

func CountWords(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}

// Assess rates OCR output for one page. Empty text is a blank page, not an
// illegible one.
func Assess(text string) Assessment {
	clean := normalize(text)
	wc := CountWords(clean)

	total := float64(len([]rune(clean)))
	if total == 0 {
		return Assessment{Score: 0, Legible: true, Reasons: []string{"blank_page"}}
	}

	alphaRatio := safeDiv(float64(countIf(clean, unicode.IsLetter)), total)
	digitRatio := safeDiv(float64(countIf(clean, unicode.IsDigit)), total)
	garbageRatio := safeDiv(float64(countGarbage(clean)), total)
	symbolRatio := safeDiv(float64(countIf(clean, isSymbol)), total)

	score := 1.0
	var reasons []string

	if alphaRatio < 0.25 && digitRatio < 0.20 {
		penalty := 0.35
		if alphaRatio < 0.10 {
			penalty = 0.55
		}
		score -= penalty
		reasons = append(reasons, "low_alpha_ratio")
	}

	// Replacement and control characters are always a bad sign.
	if garbageRatio > 0.01 {
		score -= math.Min(0.50, garbageRatio*50)
		reasons = append(reasons, "garbage_chars")
	}

	// Recognizers emit stray symbols when they read noise or ruled lines.
	if symbolRatio > 0.30 {
		score -= 0.25
		reasons = append(reasons, "symbol_noise")
	}

	if wc >= 4 && singleCharRatio(clean) > 0.50 {
		score -= 0.25
		reasons = append(reasons, "scrambled_text")
	}

	if hasRepeatedRuns(clean, 6) {
		score -= 0.15
		reasons = append(reasons, "repeated_patterns")
	}

	if alphaRatio > 0.60 && wc >= 10 {
		score += 0.10
		reasons = append(reasons, "good_prose")
	}

	score = clamp(score, 0, 1)
	return Assessment{
		Score:     score,
		Legible:   score >= 0.50,
		Reasons:   reasons,
		WordCount: wc,
	}
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isSymbol(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func singleCharRatio(s string) float64 {
	words := strings.Fields(s)
	if len(words) == 0 {
		return 0
	}
	single := 0
	for _, w := range words {
		if len([]rune(w)) == 1 {
			single++
		}
	}
	return float64(single) / float64(len(words))
}

// hasRepeatedRuns detects runs like "......" or "------".
func hasRepeatedRuns(s string, n int) bool {
	run := 0
	var last rune
	for _, r := range s {
		if r == last && !unicode.IsSpace(r) {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 1
		last = r
	}
	return false
}

func countIf(s string, pred func(rune) bool) int {
	n := 0
	for _, r := range s {
		if pred(r) {
			n++
		}
	}
	return n
}

func countGarbage(s string) int {
	n := 0
	for _, r := range s {
		if r == '\uFFFD' || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			n++
		}
	}
	return n
}

func safeDiv(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
