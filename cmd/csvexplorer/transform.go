package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvexplorer/internal/core"
)

type transformOptions struct {
	equalities []string
	searches   []string
	ci         bool
	derives    []string
	format     string
	output     string
	maxRows    int
}

func newTransformCmd() *cobra.Command {
	var opts transformOptions
	cmd := &cobra.Command{
		Use:   "transform INPUT",
		Short: "Filter and derive columns without the browser",
		Long: `Apply derived columns and filters to INPUT (CSV or XLSX, "-" for CSV on
stdin) and write the resulting view. Derived columns are computed first, so
filters may use them. Repeating --eq for one column matches any of the values.`,
		Example: `  csvexplorer transform sales.csv --derive "Margin=Revenue:-:Cost" --eq Region=East
  csvexplorer transform sales.xlsx --search Product=app --ci -o apples.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.equalities, "eq", nil, "equality filter COLUMN=VALUE (repeatable)")
	f.StringArrayVar(&opts.searches, "search", nil, "substring search COLUMN=TERM (repeatable)")
	f.BoolVar(&opts.ci, "ci", false, "make --search case-insensitive")
	f.StringArrayVar(&opts.derives, "derive", nil, "derived column NAME=LEFT:OP:RIGHT, OP one of add, subtract, multiply, divide (repeatable)")
	f.StringVar(&opts.format, "format", "", "output format: csv or xlsx (default: from --output, else csv)")
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	f.IntVar(&opts.maxRows, "max-rows", core.MaxRows, "maximum number of data rows to read")
	return cmd
}

func runTransform(cmd *cobra.Command, input string, opts transformOptions) error {
	format, err := outputFormat(opts.format, opts.output)
	if err != nil {
		return err
	}
	derivations, err := parseDerivations(opts.derives)
	if err != nil {
		return err
	}
	equalities, order, err := parseEqualities(opts.equalities)
	if err != nil {
		return err
	}

	table, err := readTable(cmd.InOrStdin(), input, opts.maxRows)
	if err != nil {
		return err
	}

	sess := core.NewSession("cli")
	if _, err := sess.Load(table); err != nil {
		return err
	}
	for _, d := range derivations {
		if _, _, err := sess.AddDerivation(d); err != nil {
			return err
		}
	}
	for _, col := range order {
		if _, err := sess.SetEquality(col, equalities[col]); err != nil {
			return err
		}
	}
	for _, s := range opts.searches {
		col, term, ok := strings.Cut(s, "=")
		if !ok || col == "" {
			return fmt.Errorf("invalid --search %q: want COLUMN=TERM", s)
		}
		if _, err := sess.SetSearch(col, term, opts.ci); err != nil {
			return err
		}
	}

	view, err := sess.View()
	if err != nil {
		return err
	}
	if err := writeView(cmd.OutOrStdout(), opts.output, view.Table, format); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, d := range view.State.Derivations {
		if warn := view.Stats[d.Name].Warning(d.Name); warn != nil {
			fmt.Fprintf(stderr, "warning: %v (%s)\n", warn, core.MapError(warn).Code)
		}
	}
	fmt.Fprintf(stderr, "%d of %d rows\n", view.Visible(), view.Total())
	return nil
}

func readTable(stdin io.Reader, input string, maxRows int) (*core.Table, error) {
	opts := core.ParseOptions{Name: filepath.Base(input), MaxRows: maxRows}
	if input == "-" {
		opts.Name = "stdin.csv"
		return core.ParseCSV(stdin, opts)
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.ParseFile(f, opts)
}

func writeView(stdout io.Writer, output string, t *core.Table, format core.FileFormat) error {
	if output == "" {
		return core.Export(stdout, t, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := core.Export(f, t, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// outputFormat resolves --format, falling back to the output file's extension.
func outputFormat(flag, output string) (core.FileFormat, error) {
	switch strings.ToLower(flag) {
	case "csv":
		return core.FormatCSV, nil
	case "xlsx":
		return core.FormatXLSX, nil
	case "":
		if output == "" {
			return core.FormatCSV, nil
		}
		return core.DetectFormat(output)
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, flag)
	}
}

// parseDerivations reads NAME=LEFT:OP:RIGHT specs.
func parseDerivations(specs []string) ([]core.Derivation, error) {
	out := make([]core.Derivation, 0, len(specs))
	for _, raw := range specs {
		name, expr, ok := strings.Cut(raw, "=")
		parts := strings.Split(expr, ":")
		if !ok || strings.TrimSpace(name) == "" || len(parts) != 3 {
			return nil, fmt.Errorf("invalid --derive %q: want NAME=LEFT:OP:RIGHT", raw)
		}
		op, err := core.ParseOperator(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid --derive %q: %w", raw, err)
		}
		out = append(out, core.Derivation{Name: name, Left: parts[0], Op: op, Right: parts[2]})
	}
	return out, nil
}

// parseEqualities groups COLUMN=VALUE specs by column, keeping first-seen
// column order. Column names that differ only in case share a group, spelled
// the way they were first given.
func parseEqualities(specs []string) (map[string][]string, []string, error) {
	values := make(map[string][]string)
	spelling := make(map[string]string)
	var order []string
	for _, raw := range specs {
		col, val, ok := strings.Cut(raw, "=")
		if !ok || col == "" {
			return nil, nil, fmt.Errorf("invalid --eq %q: want COLUMN=VALUE", raw)
		}
		key := strings.ToLower(strings.TrimSpace(col))
		first, seen := spelling[key]
		if !seen {
			first = col
			spelling[key] = col
			order = append(order, col)
		}
		values[first] = append(values[first], val)
	}
	return values, order, nil
}
