package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models served by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := openaicompat.NewClient(openaicompat.Config{
				Name:    cfg.Backend.Name,
				BaseURL: cfg.Backend.BaseURL,
				APIKey:  cfg.Backend.APIKey,
				Timeout: cfg.Backend.Timeout,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOWNED BY")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.OwnedBy)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the model list as JSON")
	return cmd
}
