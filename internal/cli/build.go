package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/JonMunkholm/geobuild/internal/report"
	"github.com/spf13/cobra"
)

type buildFlags struct {
	objectType  string
	files       map[string]string
	mapping     string
	name        string
	description string
	crs         string
	path        string
	dryRun      bool
	reports     []string
	jsonOut     bool
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	f := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build [request-file]",
		Short: "Build and validate a geoscience object",
		Long: `Build loads the csv_files of a request, applies its column mapping and
validates the result. The request comes from a JSON, YAML or TOML file
("-" reads JSON from stdin); flags override fields of the file or supply
the whole request.

Exit status is 0 when the object validated, 2 when validation rejected it
and 1 on any other failure.`,
		Example: `  geobuild build request.yaml
  geobuild build --type pointset --files points=samples.csv \
      --mapping '{"x":"X","y":"Y","z":"Z"}' --name samples --dry-run
  geobuild build request.json --report report.xlsx --report preview.geojson`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, g, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.objectType, "type", "t", "", "Object type: pointset, line_segments, downhole_collection or downhole_intervals")
	cmd.Flags().StringToStringVarP(&f.files, "files", "f", nil, "File roles as role=path (repeatable)")
	cmd.Flags().StringVarP(&f.mapping, "mapping", "m", "", "Column mapping as JSON, or @file")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Object name")
	cmd.Flags().StringVar(&f.description, "description", "", "Object description")
	cmd.Flags().StringVar(&f.crs, "crs", "", "Coordinate reference system label")
	cmd.Flags().StringVar(&f.path, "path", "", "Object path (default /<name>.json)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Validate only, do not store the object")
	cmd.Flags().StringSliceVar(&f.reports, "report", nil, "Write the report to a .json, .xlsx, .pdf or .geojson file (repeatable)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

func runBuild(cmd *cobra.Command, g *globalFlags, f *buildFlags, args []string) error {
	req, err := buildRequest(cmd, f, args)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = core.ContextWithRequester(ctx, requester())

	c, err := initServiceContext(ctx, g, !req.DryRun)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Service.Build(ctx, req)
	if err != nil {
		return err
	}

	for _, path := range f.reports {
		if err := writeReport(path, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	}

	if f.jsonOut {
		if err := report.Write(cmd.OutOrStdout(), report.FormatJSON, res); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), res)
	}

	if !res.Report.Validated() {
		return errRejected
	}
	return nil
}

// buildRequest merges the optional request file with the flags.
func buildRequest(cmd *cobra.Command, f *buildFlags, args []string) (core.BuildRequest, error) {
	var req core.BuildRequest
	if len(args) == 1 {
		var err error
		if req, err = LoadRequestFile(args[0], cmd.InOrStdin()); err != nil {
			return req, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("type") {
		req.ObjectType = core.ObjectType(f.objectType)
	}
	if flags.Changed("files") {
		if req.CSVFiles == nil {
			req.CSVFiles = core.FileRoles{}
		}
		for role, path := range f.files {
			req.CSVFiles[role] = path
		}
	}
	if flags.Changed("mapping") {
		raw, err := parseMapping(f.mapping)
		if err != nil {
			return req, err
		}
		req.ColumnMapping = raw
	}
	if flags.Changed("name") {
		req.Name = f.name
	}
	if flags.Changed("description") {
		req.Description = f.description
	}
	if flags.Changed("crs") {
		req.CRS = f.crs
	}
	if flags.Changed("path") {
		req.ObjectPath = f.path
	}
	if flags.Changed("dry-run") {
		req.DryRun = f.dryRun
	}
	return req, nil
}

// writeReport exports res to path in the format its extension names.
func writeReport(path string, res *core.BuildResult) error {
	format, err := report.FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, format, res); err != nil {
		return fmt.Errorf("failed to render %s report: %w", format, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func requester() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}
