package kelly

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// SolverConfig carries the Newton-Raphson tuning knobs. Zero value is not
// valid; use DefaultSolverConfig.
type SolverConfig struct {
	Tolerance        float64
	RelaxationFactor float64
	MaxIterations    int
}

// DefaultSolverConfig returns the numerical defaults from spec.md §6.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Tolerance:        SolverTolerance,
		RelaxationFactor: RelaxationFactor,
		MaxIterations:    MaxIterations,
	}
}

// Solve runs the combinatorial active-set Newton-Raphson allocator: it
// enumerates every active/inactive mask over constraints, solves a damped
// Newton iteration per mask, discards non-viable solutions by slack sign,
// and returns the viable solution with the highest expected return (ties
// broken by earliest mask index).
func Solve(candidates []Company, constraints []Constraint, cfg SolverConfig) (Portfolio, error) {
	n := len(candidates)
	m := len(constraints)

	if m > MaxInequalityConstraints {
		return Portfolio{}, newError(
			ErrCodeTooManyConstraintSystems,
			"Solving more than %d systems due to inequality constraints is prohibited. "+
				"You have %d constraints, which would require 2^%d systems.",
			1<<MaxInequalityConstraints, m, m,
		)
	}
	nSystems := 1 << m

	companies := make([]PortfolioCompany, n)
	uniform := 1.0 / float64(n)
	for i, c := range candidates {
		companies[i] = PortfolioCompany{Company: c, Fraction: uniform}
	}
	base := Portfolio{Companies: companies}

	outcomes, err := EnumerateOutcomes(base)
	if err != nil {
		return Portfolio{}, err
	}

	var bestFractions []float64
	bestReturn := math.Inf(-1)
	found := false

	var errDetails strings.Builder

	for mask := 0; mask < nSystems; mask++ {
		x, solveErr := solveSystem(base, outcomes, constraints, mask, cfg)
		if solveErr != nil {
			errDetails.WriteString("    mask ")
			errDetails.WriteString(strconv.Itoa(mask))
			errDetails.WriteString(": ")
			errDetails.WriteString(solveErr.Error())
			errDetails.WriteString("\n")
			continue
		}

		if !viable(x, n, m, mask, cfg.Tolerance) {
			continue
		}

		fractions := x[:n]
		candidatePortfolio := base.WithFractions(append([]float64(nil), fractions...))
		expectedReturn := ExpectedReturn(candidatePortfolio)

		if !found || expectedReturn > bestReturn {
			found = true
			bestReturn = expectedReturn
			bestFractions = append([]float64(nil), fractions...)
		}
	}

	if !found {
		return Portfolio{}, newError(
			ErrCodeNoViableSolution,
			"Did not manage to find a single viable numerical solution. This may happen when "+
				"the input data suggests a very strong bias towards a single/few investments, or "+
				"when the constraints are too strict. Errors in individual solutions:\n%s",
			errDetails.String(),
		)
	}

	return base.WithFractions(bestFractions), nil
}

// viable reports whether, for every inactive constraint, its slack is
// non-negative within tolerance.
func viable(x []float64, n, m, mask int, tolerance float64) bool {
	for c := 0; c < m; c++ {
		if mask&(1<<c) == 0 { // inactive
			slack := x[n+c]
			if slack < -tolerance {
				return false
			}
		}
	}
	return true
}

// solveSystem runs the damped Newton-Raphson loop for a single active-set
// mask, building the augmented (N+M)x(N+M) system exactly as spec.md §4.4
// describes: the unknowns are [fractions (N), constraint slots (M)].
func solveSystem(base Portfolio, outcomes []Outcome, constraints []Constraint, mask int, cfg SolverConfig) ([]float64, error) {
	n := len(base.Companies)
	m := len(constraints)
	size := n + m

	x := make([]float64, size)
	uniform := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		x[i] = uniform
	}

	for iter := 0; ; iter++ {
		portfolio := base.WithFractions(append([]float64(nil), x[:n]...))

		jacobian := kellyJacobian(outcomes, portfolio)
		residual := kellyResidual(outcomes, portfolio)

		augJacobian := mat.NewDense(size, size, nil)
		for row := 0; row < n; row++ {
			for col := 0; col < n; col++ {
				augJacobian.Set(row, col, jacobian.At(row, col))
			}
		}

		rhs := mat.NewVecDense(size, nil)
		for i := 0; i < n; i++ {
			rhs.SetVec(i, -residual.AtVec(i))
		}

		for c, constraint := range constraints {
			gradient := constraint.Gradient(portfolio)
			row := n + c

			// Unconditional: place -grad in the lower row, columns 0..N.
			for j := 0; j < n; j++ {
				augJacobian.Set(row, j, -gradient[j])
			}

			active := mask&(1<<c) != 0
			if active {
				lambda := x[row]
				for j := 0; j < n; j++ {
					augJacobian.Set(j, row, -gradient[j])
					rhs.SetVec(j, rhs.AtVec(j)+lambda*gradient[j])
				}
				augJacobian.Set(row, row, 0)
				rhs.SetVec(row, rhs.AtVec(row)+constraint.FunctionValue(portfolio, 0))
			} else {
				augJacobian.Set(row, row, -1)
				slack := x[row]
				rhs.SetVec(row, rhs.AtVec(row)+constraint.FunctionValue(portfolio, slack))
			}
		}

		var delta mat.VecDense
		if err := delta.SolveVec(augJacobian, rhs); err != nil {
			return nil, newError(
				ErrCodeJacobianInversionFailed,
				"Did not manage to find the numerical solution. This may happen if the input "+
					"data suggests a very strong bias towards a single/few investments.",
			)
		}

		maxAbsDelta := 0.0
		for i := 0; i < size; i++ {
			d := delta.AtVec(i)
			if math.Abs(d) > maxAbsDelta {
				maxAbsDelta = math.Abs(d)
			}
			x[i] += cfg.RelaxationFactor * d
		}

		if maxAbsDelta < cfg.Tolerance {
			break
		}

		if iter >= cfg.MaxIterations {
			return nil, newError(
				ErrCodeDidNotConverge,
				"Did not manage to find the numerical solution within %d iterations. This may "+
					"happen if the input data suggests a very strong bias towards a single/few "+
					"investments.",
				cfg.MaxIterations,
			)
		}
	}

	return x, nil
}
