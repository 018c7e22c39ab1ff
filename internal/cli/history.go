package cli

import (
	"fmt"
	"strconv"

	"github.com/ShayCichocki/pix/internal/config"
	"github.com/ShayCichocki/pix/internal/history"
	"github.com/ShayCichocki/pix/internal/style"
)

// listHistory prints the latest n runs.
func (a *App) listHistory(cfg *config.Config, n int) error {
	style.ConfigureColor(isTerminal(a.Stdout))

	db, err := history.OpenAndMigrate(cfg.History.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Latest(n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.Stdout, "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Command,
			string(r.Status),
			strconv.Itoa(r.ExitCode),
			style.Duration(r.Duration),
			style.Count(r.Builds),
			style.Count(r.Downloads),
			style.Bytes(r.DownloadedBytes),
		})
	}

	fmt.Fprintln(a.Stdout, style.Table(
		[]string{"Started", "Command", "Status", "Exit", "Took", "Builds", "Downloads", "Size"},
		rows,
	))
	return nil
}
