package cli

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/service"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the object types that can be built",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bold := color.New(color.Bold)
			w := cmd.OutOrStdout()
			for _, t := range service.ObjectTypes() {
				bold.Fprintf(w, "%-22s", t.Type)
				fmt.Fprintf(w, " %s\n", t.Label)
				fmt.Fprintf(w, "  %-20s schema: %s\n", "", t.SchemaID)
				fmt.Fprintf(w, "  %-20s files:  %s\n", "", strings.Join(t.Files, ", "))
			}
			return nil
		},
	}
}
