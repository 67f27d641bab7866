package testreport

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/testreport/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Manage the run store schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Database.URL == "" {
		return errors.New("database URL not configured: set --database-url or DATABASE_URL")
	}
	logger := zerolog.Ctx(cmd.Context())

	action := "up"
	if len(args) == 1 {
		action = args[0]
	}

	switch action {
	case "down":
		if err := database.MigrateDown(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info().Msg("migrations rolled back")
	case "version":
		version, dirty, err := database.MigrationVersion(cfg.Database.URL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
	default:
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}
	return nil
}
