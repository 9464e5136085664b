/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: scoring.go
Description: Parallel pair scoring. Every unordered cluster pair is aligned as a union on
a bounded worker pool; results are reduced on the calling goroutine in row-major order
so the chosen pair never depends on worker completion order.
*/

package clustering

import (
	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/sourcegraph/conc/iter"
)

// scoredPair is a candidate merge
type scoredPair struct {
	i, j      int
	score     float64
	leftName  string
	rightName string
}

type pairKey struct {
	left, right string
}

// pairCache remembers union scores of cluster pairs that have not changed since
// they were last aligned. Only the control goroutine touches it.
type pairCache struct {
	scores map[pairKey]float64
}

func newPairCache() *pairCache {
	return &pairCache{scores: make(map[pairKey]float64)}
}

// forget drops every entry involving a cluster id
func (c *pairCache) forget(id string) {
	for k := range c.scores {
		if k.left == id || k.right == id {
			delete(c.scores, k)
		}
	}
}

// unionScore aligns the members of right onto the consensus of left and scores the result
func (e *Engine) unionScore(left, right *node) float64 {
	e.stats.IncrementPairEvaluations()
	return alignment.Extend(e.aligner, left.consensus, right.cluster.ReducedPayloads()).Score()
}

// bestPair scores every pair (i < j) and returns the highest, ties going to the lowest
// pair in row-major order
func (e *Engine) bestPair(nodes []*node, cache *pairCache) scoredPair {
	var pending []scoredPair
	var all []scoredPair
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			p := scoredPair{i: i, j: j, leftName: nodes[i].cluster.Name, rightName: nodes[j].cluster.Name}
			if s, ok := cache.scores[pairKey{nodes[i].cluster.ID, nodes[j].cluster.ID}]; ok {
				p.score = s
			} else {
				p.score = -1
				pending = append(pending, p)
			}
			all = append(all, p)
		}
	}

	if len(pending) > 0 {
		mapper := iter.Mapper[scoredPair, float64]{MaxGoroutines: e.config.Workers}
		scores := mapper.Map(pending, func(p *scoredPair) float64 {
			return e.unionScore(nodes[p.i], nodes[p.j])
		})
		for k, p := range pending {
			cache.scores[pairKey{nodes[p.i].cluster.ID, nodes[p.j].cluster.ID}] = scores[k]
		}
	}

	best := scoredPair{score: -1}
	for _, p := range all {
		p.score = cache.scores[pairKey{nodes[p.i].cluster.ID, nodes[p.j].cluster.ID}]
		if p.score > best.score {
			best = p
		}
	}
	return best
}
