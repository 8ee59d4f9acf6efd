package domain

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length, or with zero magnitude, score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankHits sorts hits by similarity, highest first, and keeps at most k.
// Ties are broken by chunk ID so rankings are reproducible.
func RankHits(hits []VectorHit, k int) []VectorHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Record.ChunkID < hits[j].Record.ChunkID
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
