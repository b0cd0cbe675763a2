package presets

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/safedep/cage/internal/analytics"
	"github.com/safedep/cage/internal/ui"
	"github.com/safedep/cage/sandbox"
	"github.com/spf13/cobra"
)

func NewPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in sandbox policy presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			analytics.TrackCommandPresets()
			defer analytics.Close()

			registry, err := sandbox.NewPresetRegistry()
			if err != nil {
				ui.ErrorExit(err)
			}

			renderPresets(registry.ListPresets())
			return nil
		},
	}
}

func renderPresets(presets []*sandbox.Preset) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Preset", "Network", "Memory", "Timeout", "Description"})

	for _, preset := range presets {
		policy := preset.Policy.WithDefaults()
		tw.AppendRow(table.Row{
			preset.Name,
			policy.Network.String(),
			policy.Memory,
			policy.Timeout.String(),
			preset.Description,
		})
	}

	tw.Render()
}
