package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/Shimi9999/bmschart"
	"github.com/Shimi9999/bmschart/library"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var showNotes bool

func init() {
	decodeCmd.Flags().BoolVar(&showNotes, "notes", false, "print every note")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decodes a chart and prints its timing and notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := decodeOptions()
		if err != nil {
			return err
		}
		chart, err := bmschart.LoadBms(args[0], opts)
		if err != nil {
			return err
		}
		printChart(cmd.OutOrStdout(), chart, filepath.Dir(args[0]))
		return nil
	},
}

func printChart(w io.Writer, chart *bmschart.Chart, folder string) {
	md := chart.Metadata
	fmt.Fprintf(w, "%s %s / %s\n", md.Title, md.Subtitle, md.Artist)
	fmt.Fprintf(w, "%s, level %d, %d columns, scratch %t, long notes %t\n",
		md.DifficultyName(), md.PlayLevel, chart.ColumnCount, chart.HasScratch, chart.HasLongNotes)
	fmt.Fprintf(w, "%d notes, %.0f ms\n", len(chart.Notes), chart.Duration())

	for _, tp := range chart.TimingPoints {
		fmt.Fprintf(w, "  %10.2f ms  %g bpm\n", tp.Time, tp.BPM())
	}
	if showNotes {
		for _, n := range chart.Notes {
			fmt.Fprintf(w, "  %10.2f ms  col %2d", n.Time, n.Column)
			if n.IsHold() {
				fmt.Fprintf(w, "  hold %.2f ms", n.Duration)
			}
			if len(n.Samples) > 0 {
				fmt.Fprintf(w, "  %s", n.Samples[0].File)
			}
			fmt.Fprintln(w)
		}
	}

	indexes := maps.Keys(chart.Samples)
	slices.Sort(indexes)
	missing := 0
	for _, index := range indexes {
		if _, ok := library.ResolveSample(folder, chart.Samples[index]); !ok {
			fmt.Fprintf(w, "missing keysound #WAV%s %s\n", index, chart.Samples[index])
			missing++
		}
	}
	fmt.Fprintf(w, "%d keysounds, %d missing\n", len(indexes), missing)
}
