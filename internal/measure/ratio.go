package measure

import (
	"math"

	"github.com/google/uuid"

	"github.com/relabs-tech/marine_scale/internal/stats"
)

// RatioResult is the percent change between a base and a final session
// result, with first-order propagated uncertainty. Recomputed on demand
// whenever either session is redone.
type RatioResult struct {
	ID      string  `json:"id"`
	Ratio   float64 `json:"ratio"`   // (Wbase−Wfinal)/Wbase
	Percent float64 `json:"percent"` // 100·Ratio

	Sigma      float64 `json:"sigma"` // propagated 1σ
	Band95     float64 `json:"band_95"`
	KFactor    float64 `json:"k_factor"`
	EffectiveN int     `json:"effective_n"`

	Notes []string `json:"notes,omitempty"`
}

// Ratio combines a base and a final session result into a percent-change
// estimate. A non-positive base fixed value yields an all-zero result with
// an explanatory note instead of a division by zero; the two sessions are
// treated as independent for the error propagation.
func Ratio(base, final Result) RatioResult {
	res := RatioResult{ID: uuid.NewString()}

	if base.FixedValue <= 0 {
		res.Notes = append(res.Notes, "base session fixed value is not positive; ratio undefined")
		return res
	}

	wb, wf := base.FixedValue, final.FixedValue
	res.Ratio = (wb - wf) / wb
	res.Percent = 100 * res.Ratio

	// First-order propagation: ∂ratio/∂Wbase = Wfinal/Wbase²,
	// ∂ratio/∂Wfinal = −1/Wbase, combined in quadrature.
	dBase := wf / (wb * wb) * base.SigmaTotal
	dFinal := 1 / wb * final.SigmaTotal
	res.Sigma = math.Sqrt(dBase*dBase + dFinal*dFinal)

	// The weaker of the two sessions bounds the achievable confidence.
	res.EffectiveN = base.CountUsed
	if final.CountUsed < res.EffectiveN {
		res.EffectiveN = final.CountUsed
	}
	res.KFactor = stats.KFromN(res.EffectiveN)
	res.Band95 = res.KFactor * res.Sigma

	if base.CountUsed < 3 {
		res.Notes = append(res.Notes, "base session has fewer than 3 trimmed measurements")
	}
	if final.CountUsed < 3 {
		res.Notes = append(res.Notes, "final session has fewer than 3 trimmed measurements")
	}
	if res.EffectiveN < 3 {
		res.Notes = append(res.Notes, "effective sample size below 3; band is weakly supported")
	}
	if base.TareSigma == 0 && final.TareSigma == 0 {
		res.Notes = append(res.Notes, "neither session carries tare uncertainty; bands may be optimistic")
	}

	return res
}
