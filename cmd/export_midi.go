package cmd

import (
	"fmt"

	"github.com/Shimi9999/bmschart"
	"github.com/Shimi9999/bmschart/midiexport"
	"github.com/spf13/cobra"
)

var midiChannel uint8

func init() {
	exportMidiCmd.Flags().Uint8Var(&midiChannel, "channel", midiexport.DefaultOptions().Channel, "MIDI channel (0-15) for the notes")
	rootCmd.AddCommand(exportMidiCmd)
}

var exportMidiCmd = &cobra.Command{
	Use:   "export-midi <file> <out.mid>",
	Short: "Writes a chart as a Standard MIDI File",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := decodeOptions()
		if err != nil {
			return err
		}
		chart, err := bmschart.LoadBms(args[0], opts)
		if err != nil {
			return err
		}

		midiOpts := midiexport.DefaultOptions()
		midiOpts.Channel = midiChannel & 0x0f
		if err := midiexport.WriteFile(args[1], chart, midiOpts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d notes to %s\n", len(chart.Notes), args[1])
		return nil
	},
}
