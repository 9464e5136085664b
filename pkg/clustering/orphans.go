/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: orphans.go
Description: Orphan reduction. After the merge loop converges, singleton clusters are
folded into the multi-member cluster whose score they do not lower.
*/

package clustering

import (
	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"
)

// reduceOrphans folds singletons in list order. Each singleton goes to the target with
// the highest union score among those whose score does not drop; ties go to the lowest
// index. Singletons with no such target stay where they are.
func (e *Engine) reduceOrphans(nodes []*node) []*node {
	var orphans []string
	for _, n := range nodes {
		if n.cluster.IsSingleton() {
			orphans = append(orphans, n.cluster.ID)
		}
	}

	for _, id := range orphans {
		oi := indexOf(nodes, id)
		orphan := nodes[oi]

		var targets []int
		for i, n := range nodes {
			if !n.cluster.IsSingleton() {
				targets = append(targets, i)
			}
		}
		if len(targets) == 0 {
			return nodes
		}

		mapper := iter.Mapper[int, alignment.Sequence]{MaxGoroutines: e.config.Workers}
		unions := mapper.Map(targets, func(t *int) alignment.Sequence {
			e.stats.IncrementPairEvaluations()
			return alignment.Extend(e.aligner, nodes[*t].consensus, orphan.cluster.ReducedPayloads())
		})

		best, bestScore := -1, -1.0
		for k, t := range targets {
			s := unions[k].Score()
			if s >= nodes[t].score && s > bestScore {
				best, bestScore = k, s
			}
		}
		if best < 0 {
			continue
		}

		ti := targets[best]
		target := nodes[ti]
		members := append(append([]*core.Message{}, target.cluster.Members...), orphan.cluster.Members...)
		folded := core.NewCluster(target.cluster.Name+"-"+orphan.cluster.Name, members...)
		folded.Score = bestScore
		nodes[ti] = &node{cluster: folded, consensus: unions[best], score: bestScore}
		nodes = append(nodes[:oi], nodes[oi+1:]...)
		e.stats.IncrementOrphansFolded()

		e.logger.WithFields(logrus.Fields{
			"orphan": orphan.cluster.Name,
			"target": target.cluster.Name,
			"score":  bestScore,
		}).Debug("Orphan folded into cluster")
	}
	return nodes
}

func indexOf(nodes []*node, id string) int {
	for i, n := range nodes {
		if n.cluster.ID == id {
			return i
		}
	}
	panic("clustering: orphan " + id + " vanished")
}
