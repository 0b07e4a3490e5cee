package model

// Pair is an unordered validator pair. A is always the lexically smaller ID.
type Pair struct {
	A string
	B string
}

// NewPair returns the canonical ordering of two validator IDs.
func NewPair(v1, v2 string) Pair {
	if v2 < v1 {
		v1, v2 = v2, v1
	}
	return Pair{A: v1, B: v2}
}

// Validators returns the pair as a two-element slice.
func (p Pair) Validators() []string {
	return []string{p.A, p.B}
}

// Less orders pairs lexically, first by A then by B.
func (p Pair) Less(o Pair) bool {
	if p.A != o.A {
		return p.A < o.A
	}
	return p.B < o.B
}

// Edge is an undirected co-validation edge with a weight normalized to [0,1].
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Pair returns the edge endpoints as a canonical pair.
func (e Edge) Pair() Pair {
	return NewPair(e.Source, e.Target)
}
