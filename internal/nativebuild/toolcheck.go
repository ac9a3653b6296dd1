package nativebuild

import (
	"fmt"
	"strings"

	"github.com/potassco/gringo-dist/internal/utils/shell"
)

// ToolRequirement describes a build tool dependency.
type ToolRequirement struct {
	// Name is the primary tool binary name.
	Name string
	// Alternatives satisfy the requirement when Name is absent.
	Alternatives []string
	// Optional tools are logged when missing but never fail the check.
	Optional bool
	Purpose  string
}

// CheckRequiredTools verifies all required tools are available and reports
// every missing one in a single error.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := shell.IsCommandExist(req.Name)
		for _, alt := range req.Alternatives {
			if found {
				break
			}
			found = shell.IsCommandExist(alt)
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	switch len(missingTools) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	default:
		return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
	}
}
