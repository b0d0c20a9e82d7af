package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/planbridge"
)

// Input formats accepted by run --input-format.
const (
	formatAuto    = "auto"
	formatRows    = "rows"
	formatColumns = "columns"
	formatIPC     = "ipc"
)

// Output formats accepted by run --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputIPC   = "ipc"
)

type runOptions struct {
	input       string
	inputFormat string
	output      string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run PLAN_FILE",
		Short: "Execute an encoded plan file",
		Long: `Execute an encoded plan file, optionally over a seed table.

The seed is read from --input as row JSON, column JSON or an Arrow IPC
stream. With --input-format=auto, .arrow and .ipc files are read as IPC and
anything else as row JSON. Column JSON must be requested explicitly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBridge(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer b.Close()
			return runPlan(b, args[0], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "seed table file")
	cmd.Flags().StringVar(&opts.inputFormat, "input-format", formatAuto, "seed format: auto, rows, columns or ipc")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "result format: table, json or ipc")
	return cmd
}

func runPlan(b *planbridge.Bridge, planPath string, opts runOptions, out io.Writer) error {
	data, err := os.ReadFile(planPath)
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}
	ph, err := b.Compile(data)
	if err != nil {
		return err
	}
	defer b.FreePlan(ph)

	var seed uint64
	if opts.input != "" {
		if seed, err = loadSeed(b, opts.input, opts.inputFormat); err != nil {
			return err
		}
		defer b.FreeTable(seed)
	}

	result, err := b.ExecuteToTable(ph, seed)
	if err != nil {
		return err
	}
	defer b.FreeTable(result)

	switch opts.output {
	case outputTable:
		return b.PrintTable(result)
	case outputJSON:
		js, err := b.TableToJSON(result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(js))
		return err
	case outputIPC:
		payload, err := b.TableToIPC(result)
		if err != nil {
			return err
		}
		_, err = out.Write(payload)
		return err
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
}

func loadSeed(b *planbridge.Bridge, path, format string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read input: %w", err)
	}
	if format == formatAuto {
		format = detectFormat(path)
	}
	switch format {
	case formatRows:
		return b.TableFromRowsJSON(data)
	case formatColumns:
		return b.TableFromColumnsJSON(data)
	case formatIPC:
		return b.TableFromIPC(data)
	default:
		return 0, fmt.Errorf("unknown input format %q", format)
	}
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".arrows", ".ipc":
		return formatIPC
	}
	return formatRows
}
