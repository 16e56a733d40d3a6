package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCall(t *testing.T) {
	before := testutil.ToFloat64(callsTotal.WithLabelValues("deactivate", OutcomeDenied))
	ObserveCall("deactivate", OutcomeDenied)
	ObserveCall("deactivate", OutcomeDenied)
	after := testutil.ToFloat64(callsTotal.WithLabelValues("deactivate", OutcomeDenied))
	assert.Equal(t, before+2, after)
}

func TestIncrementRecordsDeployed(t *testing.T) {
	before := testutil.ToFloat64(recordsDeployed)
	IncrementRecordsDeployed()
	assert.Equal(t, before+1, testutil.ToFloat64(recordsDeployed))
}
