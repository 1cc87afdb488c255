package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/normalize"
)

// normalizeCmd post-processes a saved mapping result.
var normalizeCmd = &cobra.Command{
	Use:   "normalize <result-file>",
	Short: "Smooth and evenly respace a mapped strip",
	Long: `Read a mapping result written by "ledmap map --format json|yaml", smooth the
output positions with a centered moving average and respace them evenly along
the strip. The spacing standard deviation before and after is reported.

Examples:
  ledmap normalize strip.json
  ledmap normalize strip.yaml --window 7 --spacing 12 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		var res mapping.Result
		if err := readStructured(args[0], &res); err != nil {
			return fmt.Errorf("failed to read result %s: %w", args[0], err)
		}

		norm, err := normalize.Normalize(res.OutputPoints(), cfg.ToNormalizeOptions())
		if err != nil {
			if errors.Is(err, normalize.ErrTooFewPoints) {
				return fmt.Errorf("%s has only %d mapped LEDs: %w", args[0], len(res.Positions), err)
			}
			return err
		}

		return writeOutput(cmd, cfg.Output.Format, cfg.Output.File, norm, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "Points:      %d\n", len(norm.Points))
			_, _ = fmt.Fprintf(w, "Path length: %.2f\n", norm.PathLength)
			_, _ = fmt.Fprintf(w, "Mean gap:    %.2f\n", norm.MeanSpacing)
			_, _ = fmt.Fprintf(w, "Spacing std: %.3f -> %.3f\n", norm.SpacingStdBefore, norm.SpacingStdAfter)
			for i, p := range norm.Points {
				_, _ = fmt.Fprintf(w, "%4d  %9.2f %9.2f\n", i, p.X, p.Y)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	f := normalizeCmd.Flags()
	f.Bool("smooth", true, "apply the moving-average pass")
	f.Int("window", 5, "moving-average window")
	f.Bool("respace", true, "respace points evenly along the path")
	f.Float64("spacing", 0, "target spacing; 0 keeps the point count")
	f.StringP("format", "f", "text", "output format (text, json, yaml)")
	f.StringP("output", "o", "", "output file (default: stdout)")

	registerBindings(normalizeCmd,
		flagBinding{"normalize.smooth", "smooth"},
		flagBinding{"normalize.window", "window"},
		flagBinding{"normalize.respace", "respace"},
		flagBinding{"normalize.spacing", "spacing"},
		flagBinding{"output.format", "format"},
		flagBinding{"output.file", "output"},
	)
}
