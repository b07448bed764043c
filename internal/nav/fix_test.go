package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnderway(t *testing.T) {
	t.Parallel()

	assert.True(t, Fix{Validity: "A", SpeedKnots: 4.2}.Underway())
	assert.False(t, Fix{Validity: "A", SpeedKnots: 0.1}.Underway(), "drifting at anchor")
	assert.False(t, Fix{Validity: "V", SpeedKnots: 4.2}.Underway(), "void fix")
}
