// Command ledgerctl prices, renders and submits vendor invoice batches from
// the command line, using the same configuration as the API server.
//
//	ledgerctl price ISEE
//	ledgerctl render --batch acme.yaml --out acme.pdf
//	ledgerctl submit --batch acme.yaml --pdf acme.pdf
//	ledgerctl upload --file pan.png
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/vendor-ledger/internal/config"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries state shared by the subcommands.
type cli struct {
	verbose bool
	cfg     *config.Config
	log     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Vendor invoice ledger tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newPriceCmd(c),
		newRenderCmd(c),
		newSubmitCmd(c),
		newUploadCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	boot := logger.NewWithWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(zerolog.WarnLevel)
	cfg, err := config.Load(boot)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	c.log = logger.NewWithWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)
	cmd.SetContext(logger.WithContext(cmdContext(cmd), c.log))
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
