package score

import "strings"

const (
	orphanWordThreshold = 10
	overlapWindowWords  = 50
)

// ScorePosition rates an arbitrary cut position in isolation, for callers
// that need ad hoc quality numbers outside the candidate walk. It combines
// boundary bonuses on both sides of the cut, an orphan/widow penalty, and a
// topic-continuity signal from lexical overlap around the cut.
func (s *Scorer) ScorePosition(text string, pos int) int {
	if pos <= 0 || pos >= len(text) {
		return 1
	}

	quality := 5

	before := text[:pos]
	after := text[pos:]

	trimmed := strings.TrimRight(before, " \n\t\"'”’)")
	if trimmed != "" {
		switch trimmed[len(trimmed)-1] {
		case '.', '!', '?':
			quality += 2
		}
	}
	if strings.HasSuffix(before, "\n\n") || strings.HasPrefix(after, "\n\n") {
		quality += 2
	}

	if orphaned(before, after) {
		quality -= 2
	}

	overlap := topicOverlap(before, after)
	switch {
	case overlap < 0.3:
		quality += 2
	case overlap > 0.7:
		quality -= 2
	}

	if quality < 1 {
		quality = 1
	}
	if quality > 10 {
		quality = 10
	}
	return quality
}

// orphaned reports whether the cut strands fewer than orphanWordThreshold
// words on either side of its enclosing paragraph.
func orphaned(before, after string) bool {
	tail := before
	if i := strings.LastIndex(before, "\n\n"); i >= 0 {
		tail = before[i+2:]
	}
	head := after
	if i := strings.Index(after, "\n\n"); i >= 0 {
		head = after[:i]
	}

	tailWords := len(strings.Fields(tail))
	headWords := len(strings.Fields(head))
	return (tailWords > 0 && tailWords < orphanWordThreshold) ||
		(headWords > 0 && headWords < orphanWordThreshold)
}

// topicOverlap measures lexical overlap between the windows on each side of
// the cut: low overlap means the topic already shifted and the break reads
// naturally.
func topicOverlap(before, after string) float64 {
	beforeWords := lastWords(before, overlapWindowWords)
	afterWords := firstWords(after, overlapWindowWords)
	if len(beforeWords) == 0 || len(afterWords) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(beforeWords))
	for _, w := range beforeWords {
		seen[normalizeWord(w)] = true
	}
	shared := 0
	for _, w := range afterWords {
		if seen[normalizeWord(w)] {
			shared++
		}
	}
	return float64(shared) / float64(len(afterWords))
}

func lastWords(text string, n int) []string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return fields
}

func firstWords(text string, n int) []string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[:n]
	}
	return fields
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,;:!?\"'“”‘’()"))
}
