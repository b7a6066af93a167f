package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/kiranshivaraju/reelgen/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// HistoryListAction prints recent generations, newest first.
func HistoryListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	items, err := appCtx.History.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	out := cmd.Root().Writer
	if len(items) == 0 {
		fmt.Fprintln(out, "no generations yet")
		return nil
	}
	displayHistoryTable(out, items)
	return nil
}

// HistoryRemoveAction deletes one entry. Unknown ids are not an error.
func HistoryRemoveAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.History.Remove(ctx, cmd.String("id")); err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}

func HistoryClearAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.History.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	fmt.Fprintln(cmd.Root().Writer, "history cleared")
	return nil
}

func displayHistoryTable(out io.Writer, items []models.HistoryItem) {
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Created", "Prompt", "Length", "FPS", "Size", "Media")

	for _, it := range items {
		table.Append(
			it.ID,
			it.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(it.Prompt, 40),
			strconv.Itoa(it.Settings.LengthSeconds)+"s",
			strconv.Itoa(it.Settings.FPS),
			fmt.Sprintf("%dx%d", it.Settings.Width, it.Settings.Height),
			it.MediaLocation,
		)
	}

	table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
