// Package cli implements the volflow command tree.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newUniverseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Manage named watchlists",
		Long:  "Watchlists group symbols into universes for screening and watching.",
	}

	cmd.AddCommand(newUniverseListCmd(app))
	cmd.AddCommand(newUniverseShowCmd(app))
	cmd.AddCommand(newUniverseAddCmd(app))
	cmd.AddCommand(newUniverseRemoveCmd(app))
	return cmd
}

func newUniverseListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all watchlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			lists, err := app.Store.GetAllWatchlists(cmd.Context())
			if err != nil {
				return err
			}
			if len(lists) == 0 {
				return fmt.Errorf("no watchlists yet, create one with 'volflow universe add'")
			}

			if output.IsJSON() {
				return output.JSON(lists)
			}

			names := make([]string, 0, len(lists))
			for name := range lists {
				names = append(names, name)
			}
			sort.Strings(names)

			table := NewTable(output, "NAME", "SYMBOLS")
			for _, name := range names {
				table.AddRow(name, fmt.Sprintf("%d", len(lists[name])))
			}
			table.Render()
			return nil
		},
	}
}

func newUniverseShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "show [NAME]",
		Short:   "Show the symbols in a watchlist",
		Example: `  volflow universe show tech`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			name := "default"
			if len(args) > 0 {
				name = args[0]
			}

			symbols, err := app.Store.GetWatchlist(cmd.Context(), name)
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				return fmt.Errorf("watchlist %q is empty", name)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"name": name, "symbols": symbols})
			}

			output.Bold("%s  %d symbols", name, len(symbols))
			for _, symbol := range symbols {
				output.Printf("  %s\n", symbol)
			}
			return nil
		},
	}
}

func newUniverseAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "add NAME SYMBOL [SYMBOL...]",
		Short:   "Add symbols to a watchlist",
		Example: `  volflow universe add tech INFY TCS WIPRO`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			name := args[0]
			added := make([]string, 0, len(args)-1)
			for _, arg := range args[1:] {
				symbol := strings.ToUpper(arg)
				if err := app.Store.AddToWatchlist(cmd.Context(), symbol, name); err != nil {
					return fmt.Errorf("adding %s: %w", symbol, err)
				}
				added = append(added, symbol)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"name": name, "added": added})
			}
			output.Success("Added %s to %q", strings.Join(added, ", "), name)
			return nil
		},
	}
}

func newUniverseRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME SYMBOL [SYMBOL...]",
		Short:   "Remove symbols from a watchlist",
		Example: `  volflow universe remove tech WIPRO`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			name := args[0]
			removed := make([]string, 0, len(args)-1)
			for _, arg := range args[1:] {
				symbol := strings.ToUpper(arg)
				if err := app.Store.RemoveFromWatchlist(cmd.Context(), symbol, name); err != nil {
					return fmt.Errorf("removing %s: %w", symbol, err)
				}
				removed = append(removed, symbol)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"name": name, "removed": removed})
			}
			output.Success("Removed %s from %q", strings.Join(removed, ", "), name)
			return nil
		},
	}
}
