package decompose

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// softThreshold returns 0.0 if the magnitude of x is within gamma, otherwise shrinks x
// towards zero by gamma
func softThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}

// coordinateDescent minimises 0.5*||y - X*beta||^2 + sum_j penalty[j]*|beta[j]| where cols
// holds the columns of X. Penalised coefficients that are zero after the first pass stay out
// of the active set.
func coordinateDescent(cols [][]float64, y, penalty []float64, iterations int, tolerance float64) []float64 {
	n := len(cols)
	beta := make([]float64, n)

	xdot := make([]float64, n)
	for j, col := range cols {
		xdot[j] = floats.Dot(col, col)
	}

	// residual tracks y - X*beta as coefficients move
	residual := make([]float64, len(y))
	copy(residual, y)

	for i := 0; i < iterations; i++ {
		maxCoef := 0.0
		maxUpdate := 0.0

		for j := 0; j < n; j++ {
			if xdot[j] == 0 {
				continue
			}
			betaCurr := beta[j]
			if i != 0 && betaCurr == 0 && penalty[j] > 0 {
				continue
			}

			num := floats.Dot(cols[j], residual)
			betaNext := softThreshold(num/xdot[j]+betaCurr, penalty[j]/xdot[j])
			if delta := betaNext - betaCurr; delta != 0 {
				floats.AddScaled(residual, -delta, cols[j])
			}

			maxCoef = math.Max(maxCoef, math.Abs(betaNext))
			maxUpdate = math.Max(maxUpdate, math.Abs(betaNext-betaCurr))
			beta[j] = betaNext
		}

		if maxUpdate <= tolerance*maxCoef {
			break
		}
	}
	return beta
}
