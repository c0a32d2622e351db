package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/utils"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded extraction runs and capture sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := requireDB(); err != nil {
			return err
		}

		extractions, err := DB.ListExtractions(cmd.Context(), runsLimit)
		if err != nil {
			utils.ShowError("Failed to list extraction runs", err, nil)
			return err
		}
		captures, err := DB.ListCaptures(cmd.Context(), runsLimit)
		if err != nil {
			utils.ShowError("Failed to list capture sessions", err, nil)
			return err
		}

		if len(extractions) == 0 && len(captures) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		if len(extractions) > 0 {
			fmt.Fprintln(w, "EXTRACTION\tIMAGE\tSIZE\tPOINTS\tCREATED")
			for _, r := range extractions {
				fmt.Fprintf(w, "%d\t%s\t%dx%d\t%d\t%s\n",
					r.ID, r.ImagePath, r.Width, r.Height, r.PointCount,
					r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(w)
		}
		if len(captures) > 0 {
			fmt.Fprintln(w, "CAPTURE\tEFFECT JS\tFRAMES\tFPS\tSTATUS\tVIDEO\tCREATED")
			for _, c := range captures {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
					c.ID, c.EffectJS, c.FrameCount, c.FPS, c.Status, c.VideoPath,
					c.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum rows per table")
	rootCmd.AddCommand(runsCmd)
}
