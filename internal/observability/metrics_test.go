package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetArrearsRoomsReplacesBuildingSeries(t *testing.T) {
	SetArrearsRooms("building_a", map[string]int{"2024-01": 2, "2024-02": 1})
	assert.Equal(t, float64(2), testutil.ToFloat64(arrearsRooms.WithLabelValues("building_a", "2024-01")))

	SetArrearsRooms("building_a", map[string]int{"2024-02": 4})
	assert.Equal(t, 1, testutil.CollectAndCount(arrearsRooms))
	assert.Equal(t, float64(4), testutil.ToFloat64(arrearsRooms.WithLabelValues("building_a", "2024-02")))
}

func TestObservePaymentMarkedCountsByMethod(t *testing.T) {
	RegisterMetrics()
	before := testutil.ToFloat64(paymentsMarked.WithLabelValues("cash"))
	ObservePaymentMarked("cash", 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(paymentsMarked.WithLabelValues("cash")))
}
