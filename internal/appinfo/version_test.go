/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package appinfo

import (
	"debug/buildinfo"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name string
		info *buildinfo.BuildInfo
		want string
	}{
		{
			name: "main module",
			info: &buildinfo.BuildInfo{Main: debug.Module{Path: moduleName, Version: "v1.2.3"}},
			want: "v1.2.3",
		},
		{
			name: "main module, development build",
			info: &buildinfo.BuildInfo{Main: debug.Module{Path: moduleName, Version: "(devel)"}},
			want: "",
		},
		{
			name: "dependency of the next major version",
			info: &buildinfo.BuildInfo{
				Main: debug.Module{Path: "github.com/other/app"},
				Deps: []*debug.Module{{Path: moduleName + "/v2", Version: "v2.0.1"}},
			},
			want: "v2.0.1",
		},
		{
			name: "similar module path",
			info: &buildinfo.BuildInfo{Deps: []*debug.Module{{Path: moduleName + "-extra", Version: "v1.0.0"}}},
			want: "",
		},
		{
			name: "nil build info",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extractVersion(tt.info, moduleName))
		})
	}
}

func TestUserAgent(t *testing.T) {
	require.NotEmpty(t, Version())
	require.True(t, strings.HasPrefix(UserAgent(), "apiconsole/v"))
}

func TestAddPrometheusVersionLabel(t *testing.T) {
	labels := prometheus.Labels{"server": "control"}
	got := AddPrometheusVersionLabel(labels)
	require.Equal(t, prometheus.Labels{"server": "control", PrometheusVersionLabel: Version()}, got)
	require.Len(t, labels, 1)
}
