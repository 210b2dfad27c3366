package consumer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDeviceID(t *testing.T) {
	id, err := extractDeviceID("sensors/machine-01/data")
	require.NoError(t, err)
	require.Equal(t, "machine-01", id)

	id, err = extractDeviceID("sensors/floor-2.press-17/data")
	require.NoError(t, err)
	require.Equal(t, "floor-2.press-17", id)

	_, err = extractDeviceID("sensors/machine-01")
	require.Error(t, err)

	_, err = extractDeviceID("machine-01")
	require.Error(t, err)
}
