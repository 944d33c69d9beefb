/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// RequireSamplesCountInHistogram asserts that passed prometheus.Histogram contains the specified number of samples.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Histogram, wantSamplesCount int) {
	markHelper(t)
	metric := &dto.Metric{}
	require.NoError(t, hist.Write(metric))
	require.NotNil(t, metric.GetHistogram(), "metric is not a histogram")
	require.Equal(t, wantSamplesCount, int(metric.GetHistogram().GetSampleCount()))
}
