package retrieval

import (
	"fmt"
	"math"
	"strings"
)

const historyHeader = "📚 Soluções anteriores para este equipamento:"

// Enrich appends at most limit historical cases to a generated diagnosis.
// The diagnosis is returned unchanged when there is nothing to add.
func Enrich(diagnosis string, scored []ScoredRecord, limit int) string {
	if len(scored) == 0 || limit <= 0 {
		return diagnosis
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	var b strings.Builder
	b.WriteString(diagnosis)
	b.WriteString("\n\n━━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString(historyHeader)
	for i, s := range scored {
		fmt.Fprintf(&b, "\n\n%d. Relevância: %d%%\nProblema: %s\nSolução: %s",
			i+1, int(math.Round(s.Relevance*100)), s.Problem, strings.TrimSpace(s.Solution))
	}
	return b.String()
}
