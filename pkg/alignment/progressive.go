/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: progressive.go
Description: Progressive multi-sequence alignment built on a PairAligner. Members are
folded one at a time into a running consensus, so the result depends on member order.
*/

package alignment

// Progressive aligns all payloads in order: consensus(1,2), then against 3, and so on.
// A single payload yields itself with no gaps; no payloads yield an empty sequence.
func Progressive(aligner PairAligner, payloads [][]byte) Sequence {
	if len(payloads) == 0 {
		return Sequence{Data: []byte{}, Gaps: []bool{}}
	}
	return Extend(aligner, FromPayload(payloads[0]), payloads[1:])
}

// Extend continues a progressive alignment from an existing consensus.
// Extend(a, Progressive(a, p[:k]), p[k:]) equals Progressive(a, p).
func Extend(aligner PairAligner, consensus Sequence, payloads [][]byte) Sequence {
	for _, p := range payloads {
		consensus = aligner.Align(consensus, FromPayload(p)).Consensus
	}
	return consensus
}
