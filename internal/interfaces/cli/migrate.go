package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/NeedsFine/pkg/errors"
)

// MigrationStatus is the output of the migrate subcommands.
type MigrationStatus struct {
	Action  string `json:"action"`
	Version uint   `json:"version"`
	Dirty   bool   `json:"dirty"`
}

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, "up", func(m Migrator) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down N",
			Short: "Roll back the last N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps, err := strconv.Atoi(args[0])
				if err != nil || steps <= 0 {
					return errors.InvalidParam(fmt.Sprintf("steps must be a positive integer, got %q", args[0]))
				}
				return withMigrator(cmd, "down", func(m Migrator) error { return m.Down(steps) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, "version", func(Migrator) error { return nil })
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, action string, fn func(Migrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := cliCtx.Migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := fn(m); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	st := MigrationStatus{Action: action, Version: version, Dirty: dirty}
	return PrintResult(cmd, st, func() string {
		s := fmt.Sprintf("schema version %d", st.Version)
		if st.Dirty {
			s += " (dirty)"
		}
		return s + "\n"
	})
}
