// Command planbridge runs serialized plans from the command line and serves
// them over Arrow Flight.
//
// Engine and logging settings come from PLANBRIDGE_* environment variables,
// see planbridge.LoadConfig. Build with -tags duckdb_arrow.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/planbridge"
	"github.com/hugr-lab/planbridge/bridgeerr"
)

const envPrefix = "PLANBRIDGE"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// describe prefixes bridge failures with their error code.
func describe(err error) string {
	var be *bridgeerr.Error
	if errors.As(err, &be) {
		return bridgeerr.Format(be)
	}
	return err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planbridge",
		Short:         "Execute serialized dataframe plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newCapabilitiesCmd(),
		newVersionCmd(),
	)
	return root
}

// openBridge builds a Bridge from the environment. PrintTable output goes to out.
func openBridge(out io.Writer) (*planbridge.Bridge, error) {
	cfg, err := planbridge.LoadConfig(envPrefix)
	if err != nil {
		return nil, err
	}
	cfg.Stdout = out
	return planbridge.New(cfg)
}

func newCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Print the capability manifest as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBridge(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer b.Close()

			manifest, err := b.Capabilities()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), manifest)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ABI and engine versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBridge(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer b.Close()

			engine, err := b.EngineVersion()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "abi %d\n%s\n", b.ABIVersion(), engine)
			return err
		},
	}
}
