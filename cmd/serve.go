package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwrona/galleria/config"
	"github.com/adamwrona/galleria/database"
	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/database/repo/comments"
	"github.com/adamwrona/galleria/database/repo/galleries"
	"github.com/adamwrona/galleria/database/repo/images"
	"github.com/adamwrona/galleria/database/repo/stats"
	"github.com/adamwrona/galleria/internal/auth"
	"github.com/adamwrona/galleria/storage/local"
	"github.com/adamwrona/galleria/web/core"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gallery server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	accountsRepo := accounts.NewRepository(db)
	galleriesRepo := galleries.NewRepository(db)
	imagesRepo := images.NewRepository(db)
	commentsRepo := comments.NewRepository(db)
	statsRepo := stats.NewRepository(db)

	generated, err := accountsRepo.EnsureAdmin(os.Getenv("ADMIN_INITIAL_PASSWORD"))
	if err != nil {
		log.Fatalf("Failed to ensure admin account: %v", err)
	}
	if generated != "" {
		log.Printf("Created default admin user with password: %s", generated)
		log.Println("Change this password after first login")
	}

	uploadStorage, err := local.NewStorage(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	tokens := auth.NewTokenService(cfg.AuthSecret, cfg.AuthTokenTTL)
	login := auth.NewLoginService(accountsRepo, tokens)

	deps := &core.ServerDependencies{
		DB: db,
		Routes: &core.RouterDependencies{
			AccountsRepo:  accountsRepo,
			GalleriesRepo: galleriesRepo,
			ImagesRepo:    imagesRepo,
			CommentsRepo:  commentsRepo,
			StatsRepo:     statsRepo,
			Tokens:        tokens,
			Login:         login,
			Storage:       uploadStorage,
			Config:        cfg,
		},
	}

	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cleanup != nil {
		cleanup()
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited successfully")
}
