package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isdmx/podrun/sandbox"
)

func newRuntimesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtimes",
		Short: "List supported runtimes and their images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUNTIME\tIMAGE")
			for _, id := range sandbox.RuntimeIDs() {
				image, err := sandbox.DefaultImage(id)
				if err != nil {
					return err
				}
				if override := cfg.Runtimes[string(id)].Image; override != "" {
					image = override
				}
				fmt.Fprintf(w, "%s\t%s\n", id, image)
			}
			return w.Flush()
		},
	}
}
