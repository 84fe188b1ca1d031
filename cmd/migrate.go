package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamwrona/galleria/config"
	"github.com/adamwrona/galleria/database"
	"github.com/adamwrona/galleria/database/repo/accounts"
)

// migrateCmd runs schema migration and admin bootstrap without serving.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and bootstrap the admin account",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMigrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	config.InitConfig()
	cfg := config.Get()

	db, err := database.NewDB(cfg)
	if err != nil {
		return err
	}

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	log.Println("Schema migration completed")

	accountsRepo := accounts.NewRepository(db)
	generated, err := accountsRepo.EnsureAdmin(os.Getenv("ADMIN_INITIAL_PASSWORD"))
	if err != nil {
		return err
	}
	if generated != "" {
		log.Printf("Created default admin user with password: %s", generated)
	} else {
		log.Println("Admin account already present")
	}

	return nil
}
