/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package appinfo reports the version of the console module taken from the build info.
package appinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const shortName = "apiconsole"

const moduleName = "github.com/acronis/go-" + shortName

// PrometheusVersionLabel is the name of the constant label with the module version.
const PrometheusVersionLabel = "apiconsole_version"

const develVersion = "v0.0.0"

var (
	version     string
	versionOnce sync.Once
)

// Version returns the module version or v0.0.0 for development builds.
func Version() string {
	versionOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(info, moduleName)
		}
		if version == "" {
			version = develVersion
		}
	})
	return version
}

// UserAgent returns the User-Agent of outgoing requests ("apiconsole/v1.2.3").
func UserAgent() string {
	return shortName + "/" + Version()
}

// AddPrometheusVersionLabel returns a copy of labels with the module version label added.
func AddPrometheusVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusVersionLabel] = Version()
	return res
}

// extractVersion looks for the module either as the main one (binary built from this repository)
// or among dependencies, "modName/vN" paths of the next major versions included.
func extractVersion(info *buildinfo.BuildInfo, modName string) string {
	if info == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(info.Main.Path) && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
