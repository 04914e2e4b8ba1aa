package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slowjams/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that required external tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Required(cfg))
			rows := make([][]string, 0, len(statuses))
			allAvailable := true
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = status.Detail
					allAvailable = false
				}
				rows = append(rows, []string{status.Name, status.Command, state})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Tool", "Command", "Status"}, rows))
			if !allAvailable {
				return fmt.Errorf("missing required tools")
			}
			return nil
		},
	}
}
