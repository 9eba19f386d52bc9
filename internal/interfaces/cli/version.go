package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

// VersionInfo describes the binary and its scoring logic.
type VersionInfo struct {
	Version      string `json:"version"`
	Commit       string `json:"commit"`
	BuildDate    string `json:"build_date"`
	LogicVersion string `json:"logic_version"`
	Policy       string `json:"policy_version"`
	GoVersion    string `json:"go_version"`
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := VersionInfo{
				Version:      Version,
				Commit:       GitCommit,
				BuildDate:    BuildDate,
				LogicVersion: scoring.LogicVersion,
				Policy:       scoring.PolicyHybrid,
				GoVersion:    runtime.Version(),
			}
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				if engine, err := cliCtx.Config.EngineConfig(); err == nil {
					info.Policy = engine.Policy
				}
			}
			return PrintResult(cmd, info, func() string {
				return fmt.Sprintf("needsfine %s (commit %s, built %s)\nlogic %s, policy %s, %s\n",
					info.Version, info.Commit, info.BuildDate, info.LogicVersion, info.Policy, info.GoVersion)
			})
		},
	}
}
