package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKFromN(t *testing.T) {
	t.Parallel()

	t.Run("low-confidence fallback below two samples", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 2.0, KFromN(0))
		assert.Equal(t, 2.0, KFromN(1))
	})

	t.Run("tabulated rows are exact", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 12.706, KFromN(2), 1e-9) // df=1
		assert.InDelta(t, 4.303, KFromN(3), 1e-9)  // df=2
		assert.InDelta(t, 2.228, KFromN(11), 1e-9) // df=10
		assert.InDelta(t, 2.042, KFromN(31), 1e-9) // df=30
	})

	t.Run("non-tabulated df interpolates between rows", func(t *testing.T) {
		t.Parallel()
		// df=11 lies halfway between df=10 (2.228) and df=12 (2.179).
		assert.InDelta(t, (2.228+2.179)/2, KFromN(12), 1e-9)
		// df=13 is a third of the way from df=12 (2.179) to df=15 (2.131).
		assert.InDelta(t, 2.179+(2.131-2.179)/3, KFromN(14), 1e-9)
	})

	t.Run("non-increasing for n up to 40", func(t *testing.T) {
		t.Parallel()
		// n=1 is the fixed 2.0 fallback and sits outside the monotone
		// Student-t region.
		prev := KFromN(2)
		for n := 3; n <= 40; n++ {
			k := KFromN(n)
			assert.LessOrEqual(t, k, prev, "KFromN(%d) must not exceed KFromN(%d)", n, n-1)
			prev = k
		}
	})

	t.Run("approaches the asymptotic multiplier", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1.960, KFromN(101))
		assert.Equal(t, 1.960, KFromN(10000))
		assert.InDelta(t, 1.960, KFromN(95), 0.01)
	})
}
