package vbib

import (
	"github.com/pkg/errors"
)

// CompactJoints clears joints without weight and merges duplicate joints of
// every vertex, summing their weights into the lower slot.
func CompactJoints(joints []uint16, weights []float32, width int) error {
	if width <= 0 || len(joints)%width != 0 || len(joints) != len(weights) {
		return errors.Wrapf(ErrUnsupportedAttributeShape, "%d joints, %d weights of width %d", len(joints), len(weights), width)
	}

	for i := 0; i < len(joints); i += width {
		j := joints[i : i+width]
		w := weights[i : i+width]

		for s := range j {
			if w[s] == 0 {
				j[s] = 0
			}
		}

		for a := width - 2; a >= 0; a-- {
			for b := width - 1; b > a; b-- {
				if j[a] != j[b] {
					continue
				}
				w[a] += w[b]
				copy(j[b:], j[b+1:])
				copy(w[b:], w[b+1:])
				j[width-1] = 0
				w[width-1] = 0
			}
		}
	}
	return nil
}

// UniformWeights spreads weight equally over first activeCount slots of every vertex.
func UniformWeights(vertexCount, width, activeCount int) []float32 {
	weights := make([]float32, vertexCount*width)
	if activeCount <= 0 {
		return weights
	}
	base := 1 / float32(activeCount)
	for i := 0; i < vertexCount; i++ {
		for s := 0; s < width && s < activeCount; s++ {
			weights[i*width+s] = base
		}
	}
	return weights
}

// NormalizeWeights rescales every vertex with non zero weight to sum of 1.
func NormalizeWeights(weights []float32, width int) {
	for i := 0; i+width <= len(weights); i += width {
		w := weights[i : i+width]
		var sum float32
		for _, v := range w {
			sum += v
		}
		if sum == 0 || sum == 1 {
			continue
		}
		for s := range w {
			w[s] /= sum
		}
	}
}

// SplitJoints groups joint slots by four for JOINTS_n attributes.
func SplitJoints(joints []uint16, width int) [][][4]uint16 {
	sets := make([][][4]uint16, width/4)
	count := len(joints) / width
	for set := range sets {
		sets[set] = make([][4]uint16, count)
		for i := 0; i < count; i++ {
			copy(sets[set][i][:], joints[i*width+set*4:])
		}
	}
	return sets
}

// SplitWeights groups weight slots by four for WEIGHTS_n attributes.
func SplitWeights(weights []float32, width int) [][][4]float32 {
	sets := make([][][4]float32, width/4)
	count := len(weights) / width
	for set := range sets {
		sets[set] = make([][4]float32, count)
		for i := 0; i < count; i++ {
			copy(sets[set][i][:], weights[i*width+set*4:])
		}
	}
	return sets
}
