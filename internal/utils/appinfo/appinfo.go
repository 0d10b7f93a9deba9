// Package appinfo reports build information of the running binary
package appinfo

import (
	"os"
	"runtime/debug"
)

// Name is the service name reported by health checks and the CLI
const Name = "ecomission"

// Version returns APP_VERSION, the module version from build info, or "dev"
func Version() string {
	if version := os.Getenv("APP_VERSION"); version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Revision returns the short VCS revision the binary was built from, if recorded
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
