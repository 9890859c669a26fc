package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDefault_Singleton(t *testing.T) {
	m := Default()
	assert.Same(t, m, Default())

	before := testutil.ToFloat64(m.SubmissionsCreated)
	m.SubmissionsCreated.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(m.SubmissionsCreated))

	m.ImagesStored.WithLabelValues("disk").Add(2)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ImagesStored.WithLabelValues("disk")), float64(2))
}
