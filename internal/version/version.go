// Package version carries build metadata injected with -ldflags -X.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// BuildInfo is the JSON shape served by the version endpoint.
type BuildInfo struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

// Info returns the current build metadata.
func Info() BuildInfo {
	return BuildInfo{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}
}

// String renders the metadata on one line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, built %s)", b.Version, b.GitSHA, b.BuildTime)
}
