package cmd

import (
	"fmt"
	"io"

	"github.com/Shimi9999/bmschart/library"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var songsRoot string

func init() {
	songsCmd.Flags().StringVar(&songsRoot, "root", ".", "library folder the cache belongs to")
	rootCmd.AddCommand(songsCmd)
}

var songsCmd = &cobra.Command{
	Use:   "songs [filter]",
	Short: "Lists cached songs matching a title, artist or genre filter",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore(songsRoot)
		if err != nil {
			return err
		}
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		printSongs(cmd.OutOrStdout(), store.Songs(filter))
		return nil
	},
}

func printSongs(w io.Writer, songs []library.SongCacheEntry) {
	for _, song := range songs {
		fmt.Fprintf(w, "%s / %s", song.Title, song.Artist)
		if song.Genre != "" {
			fmt.Fprintf(w, " (%s)", song.Genre)
		}
		fmt.Fprintln(w)

		charts := slices.Clone(song.Charts)
		library.SortChartsByLevel(charts)
		for _, c := range charts {
			fmt.Fprintf(w, "  [%2d] %-24s %dk %4d notes  %s\n", c.PlayLevel, c.FileName, c.KeyCount, c.TotalNotes, c.MD5)
		}
	}
	fmt.Fprintf(w, "%d songs\n", len(songs))
}
