package community

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/core/model"
)

// CachedDetector memoizes another detector. Results are keyed by a signature
// of the edge and node sets that ignores their order.
type CachedDetector struct {
	inner CommunityDetector
	cache *common.LRUCache[string, [][]string]
}

func NewCachedDetector(inner CommunityDetector, capacity int) *CachedDetector {
	return &CachedDetector{
		inner: inner,
		cache: common.NewLRUCache[string, [][]string](capacity),
	}
}

func (d *CachedDetector) Detect(edges []model.Edge, nodes []string) ([][]string, error) {
	key := Signature(edges, nodes)
	if cached, ok := d.cache.Get(key); ok {
		return clone(cached), nil
	}

	communities, err := d.inner.Detect(edges, nodes)
	if err != nil {
		return nil, err
	}
	d.cache.Set(key, clone(communities))
	return communities, nil
}

// Stats exposes the underlying cache counters.
func (d *CachedDetector) Stats() (hits, misses, evictions int64) {
	return d.cache.Stats()
}

// Signature is a canonical digest of a graph's edges and nodes.
func Signature(edges []model.Edge, nodes []string) string {
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		p := e.Pair()
		lines = append(lines, p.A+"\x1f"+p.B+"\x1f"+strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\x1e'})
	}
	h.Write([]byte{'\x1d'})
	for _, n := range sortedNodes(nodes) {
		h.Write([]byte(n))
		h.Write([]byte{'\x1e'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func clone(communities [][]string) [][]string {
	if communities == nil {
		return nil
	}
	out := make([][]string, len(communities))
	for i, c := range communities {
		out[i] = append([]string(nil), c...)
	}
	return out
}
