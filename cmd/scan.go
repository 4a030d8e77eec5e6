package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Shimi9999/bmschart/library"
	"github.com/spf13/cobra"
)

var verifyHashes bool

func init() {
	scanCmd.Flags().BoolVar(&verifyHashes, "verify", false, "rehash every chart even when size and modification time match")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan <root>",
	Short: "Scans a library folder and updates its cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, root, err := openStore(args[0])
		if err != nil {
			return err
		}

		config := scanConfig()
		config.VerifyHashes = verifyHashes
		scanner := library.NewScanner(store, config)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		res := scanner.Scan(ctx, root)

		out := cmd.OutOrStdout()
		for _, f := range res.Failures {
			fmt.Fprintf(out, "failed: %s: %v\n", f.Path, f.Err)
		}
		fmt.Fprintf(out, "%s: %d songs, %d charts (%d reused, %d parsed, %d failed)\n",
			res.Outcome, res.Songs, res.Charts, res.Reused, res.Parsed, len(res.Failures))
		if res.Outcome == library.OutcomeFailed {
			return res.Err
		}
		return nil
	},
}
