package stats

// Two-sided 95% Student-t critical values keyed by degrees of freedom.
// Rows are sparse above df=10; KFromN interpolates between them.
var tTable = []struct {
	df float64
	k  float64
}{
	{1, 12.706},
	{2, 4.303},
	{3, 3.182},
	{4, 2.776},
	{5, 2.571},
	{6, 2.447},
	{7, 2.365},
	{8, 2.306},
	{9, 2.262},
	{10, 2.228},
	{12, 2.179},
	{15, 2.131},
	{20, 2.086},
	{25, 2.060},
	{30, 2.042},
}

const (
	kAsymptotic = 1.960 // df → ∞
	kFallback   = 2.0   // n ≤ 1; not statistically derived, low confidence
)

// KFromN returns the multiplier that converts a 1σ uncertainty into a 95%
// confidence band for a sample of size n, from a Student-t table keyed by
// n−1 degrees of freedom. Non-tabulated df values are interpolated between
// the bracketing rows; above df=30 the value is interpolated toward the
// asymptotic 1.960, reached at df=100.
func KFromN(n int) float64 {
	if n <= 1 {
		return kFallback
	}
	df := float64(n - 1)

	if df >= 100 {
		return kAsymptotic
	}
	if df >= 30 {
		return 2.042 + (df-30)/(100-30)*(kAsymptotic-2.042)
	}

	for i := 1; i < len(tTable); i++ {
		if df <= tTable[i].df {
			lo, hi := tTable[i-1], tTable[i]
			frac := (df - lo.df) / (hi.df - lo.df)
			return lo.k + frac*(hi.k-lo.k)
		}
	}
	return tTable[len(tTable)-1].k
}
