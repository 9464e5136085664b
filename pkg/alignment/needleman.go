/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: needleman.go
Description: Byte-granular Needleman-Wunsch global alignment. Produces the consensus of
two sequences, marking every column where they disagree as a gap. This is the hot loop
of the clustering engine and is kept free of any engine state.
*/

package alignment

// Scoring holds the substitution and gap scores of the dynamic programme
type Scoring struct {
	Match    int32 `json:"match"`    // Score for two equal literal bytes
	Mismatch int32 `json:"mismatch"` // Score for differing bytes or any gap column
	Gap      int32 `json:"gap"`      // Score for an insertion in either sequence
}

// DefaultScoring is the scoring used for protocol messages
var DefaultScoring = Scoring{Match: 10, Mismatch: -10, Gap: 0}

// Result is the outcome of one pairwise alignment
type Result struct {
	Consensus Sequence `json:"consensus"` // Merged sequence with gap mask
	Score     int32    `json:"score"`     // Value of the bottom-right matrix cell
	Rank      float64  `json:"rank"`      // Best matrix cell relative to a perfect match, 0..100
}

// PairAligner aligns two sequences into a consensus
type PairAligner interface {
	Align(a, b Sequence) Result
}

// Aligner implements PairAligner with the Needleman-Wunsch algorithm
type Aligner struct {
	scoring Scoring
	slick   bool
}

// Option configures an Aligner
type Option func(*Aligner)

// WithScoring overrides the default scores
func WithScoring(s Scoring) Option {
	return func(a *Aligner) { a.scoring = s }
}

// WithSlick enables removal of isolated literal bytes between two gaps
func WithSlick(enabled bool) Option {
	return func(a *Aligner) { a.slick = enabled }
}

// NewAligner creates an aligner using DefaultScoring
func NewAligner(opts ...Option) *Aligner {
	a := &Aligner{scoring: DefaultScoring}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align computes the global alignment of a and b.
// Columns already marked as gaps in either input never count as a match.
func (a *Aligner) Align(x, y Sequence) Result {
	x.check()
	y.check()

	n, m := len(x.Data), len(y.Data)
	w := m + 1
	matrix := make([]int32, (n+1)*w)

	var best int32
	for i := 1; i <= n; i++ {
		row := i * w
		prev := (i - 1) * w
		for j := 1; j <= m; j++ {
			s := a.scoring.Mismatch
			if equalColumn(x, y, i-1, j-1) {
				s = a.scoring.Match
			}
			v := matrix[prev+j-1] + s
			if left := matrix[row+j-1] + a.scoring.Gap; left > v {
				v = left
			}
			if top := matrix[prev+j] + a.scoring.Gap; top > v {
				v = top
			}
			matrix[row+j] = v
			if v > best {
				best = v
			}
		}
	}

	data := make([]byte, 0, n+m)
	gaps := make([]bool, 0, n+m)

	i, j := n, m
	for i > 0 && j > 0 {
		left := matrix[i*w+j-1]
		diag := matrix[(i-1)*w+j-1]
		top := matrix[(i-1)*w+j]

		switch {
		case left > diag && left > top:
			data = append(data, y.Data[j-1])
			gaps = append(gaps, true)
			j--
		case top >= left && top > diag:
			data = append(data, x.Data[i-1])
			gaps = append(gaps, true)
			i--
		default:
			data = append(data, x.Data[i-1])
			gaps = append(gaps, !equalColumn(x, y, i-1, j-1))
			i--
			j--
		}
	}
	for ; i > 0; i-- {
		data = append(data, x.Data[i-1])
		gaps = append(gaps, true)
	}
	for ; j > 0; j-- {
		data = append(data, y.Data[j-1])
		gaps = append(gaps, true)
	}

	reverse(data, gaps)
	consensus := Sequence{Data: data, Gaps: gaps}
	if a.slick {
		consensus = Slick(consensus)
	}

	return Result{
		Consensus: consensus,
		Score:     matrix[n*w+m],
		Rank:      a.rank(best, n, m),
	}
}

// rank expresses the best matrix cell as a share of a perfect match of the shorter input
func (a *Aligner) rank(best int32, n, m int) float64 {
	shorter := n
	if m < shorter {
		shorter = m
	}
	if shorter == 0 || a.scoring.Match <= 0 {
		return 0
	}
	r := 100 * float64(best) / float64(int64(a.scoring.Match)*int64(shorter))
	if r > 100 {
		r = 100
	}
	if r < 0 {
		r = 0
	}
	return r
}

// Slick turns every literal column enclosed by two gap columns into a gap.
// The input is left untouched.
func Slick(s Sequence) Sequence {
	out := s.Clone()
	for k := 1; k+1 < len(s.Gaps); k++ {
		if !s.Gaps[k] && s.Gaps[k-1] && s.Gaps[k+1] {
			out.Gaps[k] = true
		}
	}
	return out
}

func equalColumn(x, y Sequence, i, j int) bool {
	return !x.Gaps[i] && !y.Gaps[j] && x.Data[i] == y.Data[j]
}

func reverse(data []byte, gaps []bool) {
	for l, r := 0, len(data)-1; l < r; l, r = l+1, r-1 {
		data[l], data[r] = data[r], data[l]
		gaps[l], gaps[r] = gaps[r], gaps[l]
	}
}
