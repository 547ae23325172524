package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/sheetlens/config"
)

func TestControllerAcquireRelease(t *testing.T) {
	limits := NewLimits(1, 1)
	controller := NewController(limits)

	require.Equal(t, limits, controller.LimitsSnapshot())

	require.NoError(t, controller.AcquireRequest(context.Background()))
	controller.ReleaseRequest()

	require.NoError(t, controller.AcquireDataset(context.Background()))
	controller.ReleaseDataset()
}

func TestControllerDatasetCapacity(t *testing.T) {
	controller := NewController(NewLimits(1, 1))

	require.NoError(t, controller.AcquireDataset(context.Background()))
	require.ErrorIs(t, controller.AcquireDataset(context.Background()), ErrDatasetCapacity)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, controller.AcquireDataset(ctx), context.Canceled)

	controller.ReleaseDataset()
	require.NoError(t, controller.AcquireDataset(context.Background()))
}

func TestNewLimitsDefaults(t *testing.T) {
	limits := NewLimits(0, -1)
	require.Equal(t, config.DefaultMaxConcurrentRequests, limits.MaxConcurrentRequests)
	require.Equal(t, config.DefaultMaxOpenDatasets, limits.MaxOpenDatasets)
	require.Equal(t, config.DefaultPageSize, limits.PageSize)
	require.Equal(t, config.DefaultMaxRowsPerLoad, limits.MaxRowsPerLoad)
}
