// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time:
//
//	go build -ldflags "-X specvis/pkg/build.buildName=specvis -X specvis/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds run without the flags and report "unknown".
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the information for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

const unknown = "unknown"

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = Info{
		Name:    "specvis",
		Time:    unknown,
		Commit:  unknown,
		Version: unknown,
	}
)

// Initialize copies the ldflags values into the build information. Every
// missing flag is reported in the returned error; the fields that were set
// are applied regardless, so callers may treat the error as a warning.
func Initialize() error {
	var errs []error
	apply := func(dst *string, val, flag string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = val
	}

	apply(&buildInfo.Name, buildName, "BuildName")
	apply(&buildInfo.Time, buildTime, "BuildTime")
	apply(&buildInfo.Commit, buildCommit, "BuildCommit")
	apply(&buildInfo.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// Get returns the current build information.
func Get() Info {
	return buildInfo
}
