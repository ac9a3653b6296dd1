package nativebuild

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/shell"
)

// VersionMismatchError is returned when the built artifact reports a release
// other than the one being packaged.
type VersionMismatchError struct {
	Want string
	Got  string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("built artifact reports version %s, but the package version is %s", e.Got, e.Want)
}

// ProbeVersion runs probe.Command in dir and extracts the reported version
// with the first capture group of probe.Pattern. The major, minor and patch
// components must equal those of release.
func ProbeVersion(ctx context.Context, dir string, probe *config.VersionProbe, release string) (string, error) {
	log := logger.Logger()

	re, err := regexp.Compile(probe.Pattern)
	if err != nil {
		return "", fmt.Errorf("invalid version probe pattern %q: %w", probe.Pattern, err)
	}
	if re.NumSubexp() < 1 {
		return "", fmt.Errorf("version probe pattern %q has no capture group", probe.Pattern)
	}

	output, err := shell.ExecCmd(ctx, probe.Command, dir, nil)
	if err != nil {
		return "", fmt.Errorf("running version probe: %w", err)
	}

	m := re.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("version probe output %q does not match %q", strings.TrimSpace(output), probe.Pattern)
	}
	reported := m[1]
	log.Debugf("version probe reported %s", reported)

	got, err := semver.ParseTolerant(reported)
	if err != nil {
		return "", fmt.Errorf("parsing probed version %q: %w", reported, err)
	}
	want, err := semver.ParseTolerant(release)
	if err != nil {
		return "", fmt.Errorf("parsing package release %q: %w", release, err)
	}

	if got.Major != want.Major || got.Minor != want.Minor || got.Patch != want.Patch {
		return reported, &VersionMismatchError{Want: release, Got: reported}
	}
	return reported, nil
}
