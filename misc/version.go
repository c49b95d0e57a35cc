// Package misc keeps program identity values set at link time.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Values below are overwritten with -ldflags "-X dbfeed/misc.version=..." by
// the build.
var (
	version = "dev"
	gitHash = "unknown"
	appName = ""
)

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}

// GetAppName returns program name without extension, it is used to name logs,
// reports and other artifacts.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	name := filepath.Base(os.Args[0])
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if len(name) == 0 || strings.HasSuffix(name, ".test") || name == "main" {
		return "dbfeed"
	}
	return name
}
