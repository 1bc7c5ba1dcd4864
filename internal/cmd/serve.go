package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dixis/marketplace/internal/config"
	"github.com/dixis/marketplace/internal/database"
	"github.com/dixis/marketplace/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	log.Printf("Connected to database and redis")

	srv := server.NewServer(cfg, db, redisClient)

	log.Printf("Server starting on %s", cfg.Server.Addr)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
