package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newPreviewCmd(g *globalFlags) *cobra.Command {
	var (
		role    string
		rows    int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the columns and first rows of a table",
		Long: `Preview loads one CSV or XLSX file the way a build would and shows the
detected headers, the inferred column types and a sample of rows. Use it
to write the column_mapping of a request.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := initServiceContext(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer c.Close()

			p, err := c.Service.Preview(args[0], role, rows)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printPreview(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "File role used in error messages")
	cmd.Flags().IntVarP(&rows, "rows", "r", 0, "Number of sample rows (default 10)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the preview as JSON")
	return cmd
}
