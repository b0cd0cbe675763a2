package version

import (
	"fmt"
	"os"

	"github.com/safedep/cage/internal/analytics"
	"github.com/safedep/cage/internal/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			analytics.TrackCommandVersion()
			defer analytics.Close()

			fmt.Fprintf(os.Stdout, "Version: %s\n", version.Version)
			fmt.Fprintf(os.Stdout, "CommitSHA: %s\n", version.Commit)

			return nil
		},
	}
}
