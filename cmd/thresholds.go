package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

var thrJSON bool

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "View or change the classification thresholds",
}

var thresholdsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThresholds()
		if err != nil {
			return err
		}
		if thrJSON {
			return printJSON(cmd.OutOrStdout(), store.Current())
		}
		printThresholds(cmd.OutOrStdout(), store)
		return nil
	},
}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set <family>.<key> <value>",
	Short: "Set one threshold, e.g. cct.large_min 600",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %w", args[0], err)
		}
		store, err := openThresholds()
		if err != nil {
			return err
		}
		next, err := store.Current().With(args[0], val)
		if err != nil {
			return err
		}
		if err := store.Update(next); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s in %s\n", args[0], args[1], store.Path())
		return nil
	},
}

var thresholdsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThresholds()
		if err != nil {
			return err
		}
		if err := store.ResetToDefault(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Thresholds reset to defaults in %s\n", store.Path())
		return nil
	},
}

var thresholdsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the thresholds every time the file changes, until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThresholds()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printThresholds(w, store)
		sub := store.Subscribe(thresholds.ObserverFunc(func(thresholds.Config) error {
			printThresholds(w, store)
			return nil
		}))
		defer store.Unsubscribe(sub)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return store.Watch(ctx)
	},
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
	thresholdsCmd.AddCommand(thresholdsShowCmd, thresholdsSetCmd, thresholdsResetCmd, thresholdsWatchCmd)
	thresholdsShowCmd.Flags().BoolVar(&thrJSON, "json", false, "print as JSON")
}

func printThresholds(w io.Writer, store *thresholds.Store) {
	cur := store.Current()
	var rows [][]string
	for _, fam := range []struct {
		name string
		f    thresholds.Family
	}{{"cct", cur.CCT}, {"percentage", cur.Percentage}} {
		rows = append(rows, []string{fam.name, num(fam.f.SmallMax), num(fam.f.MediumMin), num(fam.f.MediumMax), num(fam.f.LargeMin)})
	}
	title := "Thresholds (" + store.Path() + ")"
	printTable(w, title, []string{"Family", "small_max", "medium_min", "medium_max", "large_min"}, rows,
		alignLeft, alignRight, alignRight, alignRight, alignRight)
}
