// Package deps reports availability of the external converter binaries the
// processing pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"corkboard/internal/config"
)

// Requirement defines an external tool corkboard relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForProcessing builds the requirement list from the configured converter
// binaries. Optional tools that are left unconfigured still appear so the
// operator can see which stages are disabled.
func ForProcessing(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "PDF renderer",
			Command:     cfg.Processing.PDFRenderBinary,
			Description: "rasterizes uploaded PDFs into page images",
		},
		{
			Name:        "Dark mode converter",
			Command:     cfg.Processing.DarkModeCommand,
			Description: "rewrites PDFs for the alternate theme",
			Optional:    true,
		},
		{
			Name:        "OCR engine",
			Command:     cfg.Processing.OCRBinary,
			Description: "extracts document titles from page images",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
