package backends

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/safedep/cage/internal/analytics"
	"github.com/safedep/cage/internal/ui"
	"github.com/safedep/cage/sandbox/platform"
	"github.com/spf13/cobra"
)

func NewBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "Show sandbox backend availability on this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			analytics.TrackCommandBackends()
			defer analytics.Close()

			renderBackends(platform.Probe())
			return nil
		},
	}
}

func renderBackends(statuses []platform.Status) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Backend", "Status"})

	for _, status := range statuses {
		availability := ui.Colors.Red("unavailable")
		if status.Available {
			availability = ui.Colors.Green("available")
		}

		tw.AppendRow(table.Row{status.Name, availability})
	}

	tw.Render()
}
