// Public domain.

// Package fitstat implements the fit statistics as pure per-bin functions.
//
// Every statistic is -2 ln L up to a constant, so statistics of
// independent datasets add.
//
// Logarithms follow one policy everywhere: the argument is truncated at
// Truncation, and a term n ln(x) is zero when n is zero.  A bin with a
// zero prediction and non-zero counts therefore scores a large finite
// penalty rather than Inf or NaN.
package fitstat

import "math"

// Truncation is the smallest argument passed to a logarithm.
const Truncation = 1e-25

// nlog returns n ln(x) under the truncation policy.
func nlog(n, x float64) float64 {
	if n == 0 {
		return 0
	}
	return n * math.Log(math.Max(x, Truncation))
}

// Cash returns 2(mu - n ln mu).
func Cash(n, mu float64) float64 {
	return 2 * (mu - nlog(n, mu))
}

// CashDeviance returns Cash(n, mu) minus its value at mu = n.
// It is non-negative and zero when mu equals n.
func CashDeviance(n, mu float64) float64 {
	return Cash(n, mu) - Cash(n, n)
}

// WStat returns the on/off statistic for signal mu_s and on-region
// background mu_b,
//
//	2(mu_s + (1+1/alpha) mu_b - n_on ln(mu_s+mu_b) - n_off ln(mu_b/alpha))
//
// alpha is the on/off exposure ratio and must be positive.
func WStat(nOn, nOff, alpha, muSig, muBkg float64) float64 {
	return 2 * (muSig + (1+1/alpha)*muBkg -
		nlog(nOn, muSig+muBkg) - nlog(nOff, muBkg/alpha))
}

// ProfiledBackground returns the on-region background minimizing WStat
// for fixed muSig.  It is the positive root of
//
//	(1+alpha) b^2 - C b - alpha n_off mu_s = 0
//	C = alpha (n_on + n_off) - (1+alpha) mu_s
func ProfiledBackground(nOn, nOff, alpha, muSig float64) float64 {
	c := alpha*(nOn+nOff) - (1+alpha)*muSig
	d := math.Sqrt(math.Max(0, c*c+4*alpha*(1+alpha)*nOff*muSig))
	if c >= 0 {
		return (c + d) / (2 * (1 + alpha))
	}
	// c < 0: avoid cancellation, b = 2 alpha n_off mu_s / (d - c)
	if d-c == 0 {
		return 0
	}
	return 2 * alpha * nOff * muSig / (d - c)
}

// WStatProfiled returns WStat with the background profiled out.
func WStatProfiled(nOn, nOff, alpha, muSig float64) float64 {
	return WStat(nOn, nOff, alpha, muSig, ProfiledBackground(nOn, nOff, alpha, muSig))
}

// WStatBest returns the signal and background jointly minimizing WStat.
// Signal may be negative; the minimum is then outside the physical region.
func WStatBest(nOn, nOff, alpha float64) (muSig, muBkg float64) {
	return nOn - alpha*nOff, alpha * nOff
}

// Chi2 returns ((obs-model)/sigma)^2 where sigma is errn when the model
// lies below the observation and errp otherwise.  Pass the same value for
// symmetric errors.
func Chi2(obs, model, errn, errp float64) float64 {
	s := errp
	if model < obs {
		s = errn
	}
	r := (obs - model) / s
	return r * r
}
