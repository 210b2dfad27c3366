package guard

import (
	"testing"
	"time"

	"machine-guard/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_IsolatesDevicesAndPreservesOrder(t *testing.T) {
	store := newFakeStore()
	reg := NewRegistry(testGuardConfig(15), store, &fakeNotifier{}, zap.NewNop())
	base := time.Unix(1700000000, 0)

	devices := []string{"machine-01", "machine-02", "machine-03"}
	for i := 0; i < 15; i++ {
		for _, dev := range devices {
			reg.Dispatch(mkReading(dev, i, base))
		}
	}

	require.Equal(t, len(devices), reg.DeviceCount())

	// drain all inboxes before asserting
	reg.Stop()

	for _, dev := range devices {
		require.Equal(t, models.StateMonitoring, store.stateOf(dev),
			"device %s should have completed calibration", dev)
		require.NotNil(t, store.artifacts[dev])
	}
}

func TestRegistry_DispatchAfterStopIsNoop(t *testing.T) {
	reg := NewRegistry(testGuardConfig(15), newFakeStore(), &fakeNotifier{}, zap.NewNop())
	reg.Stop()

	reg.Dispatch(mkReading("machine-01", 0, time.Unix(1700000000, 0)))
	require.Equal(t, 0, reg.DeviceCount())
}

func TestRegistry_StopIsIdempotent(t *testing.T) {
	reg := NewRegistry(testGuardConfig(15), newFakeStore(), &fakeNotifier{}, zap.NewNop())
	reg.Dispatch(mkReading("machine-01", 0, time.Unix(1700000000, 0)))

	reg.Stop()
	reg.Stop()
}
