package retrieval

import "strings"

// MaxCompareRunes bounds the prefix of each text that Similarity compares.
// Problem descriptions that matter for matching fit well within it, and the
// alignment cost grows with the product of both lengths.
const MaxCompareRunes = 1000

// Similarity is the matching-blocks ratio 2*M/T, where M is the number of
// runes covered by the recursive longest-common-substring alignment and T
// the total rune count. Comparison is case-insensitive and limited to the
// first MaxCompareRunes runes of each text. Inputs are put in a canonical
// order first so that Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	ra, rb := prefixRunes(strings.ToLower(a)), prefixRunes(strings.ToLower(b))
	if string(ra) > string(rb) {
		ra, rb = rb, ra
	}
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(newMatcher(ra, rb).matchingRunes()) / float64(total)
}

func prefixRunes(s string) []rune {
	r := []rune(s)
	if len(r) > MaxCompareRunes {
		r = r[:MaxCompareRunes]
	}
	return r
}

type span struct{ alo, ahi, blo, bhi int }

// matcher keeps the run-length rows between longestMatch calls. Row index
// j+1 holds the length of the common run ending at b[j]; only touched
// entries are reset.
type matcher struct {
	a, b              []rune
	b2j               map[rune][]int
	prev, cur         []int
	prevUsed, curUsed []int
}

func newMatcher(a, b []rune) *matcher {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	return &matcher{
		a:    a,
		b:    b,
		b2j:  b2j,
		prev: make([]int, len(b)+1),
		cur:  make([]int, len(b)+1),
	}
}

func (m *matcher) matchingRunes() int {
	matched := 0
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := m.longestMatch(s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest common run of a[alo:ahi] and b[blo:bhi],
// preferring the earliest start in a, then in b.
func (m *matcher) longestMatch(s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	for i := s.alo; i < s.ahi; i++ {
		for _, j := range m.b2j[m.a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := m.prev[j] + 1
			m.cur[j+1] = k
			m.curUsed = append(m.curUsed, j+1)
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		for _, x := range m.prevUsed {
			m.prev[x] = 0
		}
		m.prev, m.cur = m.cur, m.prev
		m.prevUsed, m.curUsed = m.curUsed, m.prevUsed[:0]
	}
	for _, x := range m.prevUsed {
		m.prev[x] = 0
	}
	m.prevUsed = m.prevUsed[:0]
	return besti, bestj, bestk
}
