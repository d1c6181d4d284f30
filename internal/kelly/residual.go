package kelly

import "gonum.org/v1/gonum/mat"

// kellyResidual computes F_k(f) = Σ_o p_o * r_{o,k} / (1 + Σ_j f_j * r_{o,j})
// for every company k, given the enumerated outcomes and the portfolio's
// current fractions.
func kellyResidual(outcomes []Outcome, p Portfolio) *mat.VecDense {
	n := len(p.Companies)
	residual := mat.NewVecDense(n, nil)

	for _, o := range outcomes {
		denom := 1.0
		for _, pc := range p.Companies {
			denom += pc.Fraction * o.CompanyReturns[pc.Company.Ticker]
		}
		for k, pc := range p.Companies {
			rk := o.CompanyReturns[pc.Company.Ticker]
			residual.SetVec(k, residual.AtVec(k)+o.Probability*rk/denom)
		}
	}

	return residual
}

// kellyJacobian computes the symmetric Jacobian
// J_{k,l}(f) = -Σ_o p_o * r_{o,k} * r_{o,l} * (1 + Σ_j f_j * r_{o,j})^-2.
// Only the upper triangle is accumulated and then mirrored, matching the
// symmetry invariant the solver relies on.
func kellyJacobian(outcomes []Outcome, p Portfolio) *mat.Dense {
	n := len(p.Companies)
	jacobian := mat.NewDense(n, n, nil)

	for _, o := range outcomes {
		denom := 1.0
		for _, pc := range p.Companies {
			denom += pc.Fraction * o.CompanyReturns[pc.Company.Ticker]
		}
		invDenomSq := 1.0 / (denom * denom)

		for row := 0; row < n; row++ {
			rRow := o.CompanyReturns[p.Companies[row].Company.Ticker]
			for col := row; col < n; col++ {
				rCol := o.CompanyReturns[p.Companies[col].Company.Ticker]
				contribution := -o.Probability * rRow * rCol * invDenomSq
				jacobian.Set(row, col, jacobian.At(row, col)+contribution)
			}
		}
	}

	for row := 0; row < n; row++ {
		for col := row + 1; col < n; col++ {
			jacobian.Set(col, row, jacobian.At(row, col))
		}
	}

	return jacobian
}
