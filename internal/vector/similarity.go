package vector

import "math"

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ScoreFromDistance maps a non-negative distance to a similarity in (0, 1].
func ScoreFromDistance(d float32) float64 {
	if d < 0 {
		d = 0
	}
	return 1 / (1 + float64(d))
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}
