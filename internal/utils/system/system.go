package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/shell"
)

var OsReleaseFile = "/etc/os-release"

// HostInfo identifies the machine a binary distribution was built on.
type HostInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

// GetHostArch returns the machine hardware name as reported by uname -m.
func GetHostArch(ctx context.Context) (string, error) {
	output, err := shell.ExecCmd(ctx, "uname -m", "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get host architecture: %w", err)
	}
	arch := strings.TrimSpace(output)
	if arch == "" {
		return "", fmt.Errorf("failed to get host architecture: empty uname output")
	}
	return arch, nil
}

// PlatformTag returns the <os>-<arch> tag carried by binary archive names,
// e.g. linux-x86_64.
func PlatformTag(ctx context.Context) (string, error) {
	arch, err := GetHostArch(ctx)
	if err != nil {
		return "", err
	}
	return runtime.GOOS + "-" + strings.ReplaceAll(arch, "-", "_"), nil
}

// GetHostOsInfo reads the distribution name and version from os-release,
// falling back to lsb_release.
func GetHostOsInfo(ctx context.Context) (HostInfo, error) {
	log := logger.Logger()

	var info HostInfo
	arch, err := GetHostArch(ctx)
	if err != nil {
		log.Errorf("Failed to get host architecture: %v", err)
		return info, err
	}
	info.Arch = arch

	if file, err := os.Open(OsReleaseFile); err == nil {
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			parts := strings.SplitN(scanner.Text(), "=", 2)
			if len(parts) != 2 {
				continue
			}
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"")
			switch strings.TrimSpace(parts[0]) {
			case "NAME":
				info.Name = value
			case "VERSION_ID":
				info.Version = value
			}
		}
		if err := scanner.Err(); err != nil {
			return info, fmt.Errorf("error reading %s: %w", OsReleaseFile, err)
		}
		log.Debugf("Detected OS info: %s %s %s", info.Name, info.Version, info.Arch)
		return info, nil
	}

	output, err := shell.ExecCmd(ctx, "lsb_release -si", "", nil)
	if err != nil {
		return info, fmt.Errorf("failed to get host OS name: %w", err)
	}
	info.Name = strings.TrimSpace(output)

	output, err = shell.ExecCmd(ctx, "lsb_release -sr", "", nil)
	if err != nil {
		return info, fmt.Errorf("failed to get host OS version: %w", err)
	}
	info.Version = strings.TrimSpace(output)

	log.Debugf("Detected OS info: %s %s %s", info.Name, info.Version, info.Arch)
	return info, nil
}
