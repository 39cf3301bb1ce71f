package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/db"
	"github.com/sqlbee/sqlbee/pkg/server"
	"github.com/sqlbee/sqlbee/pkg/server/endpoints"
	"github.com/sqlbee/sqlbee/pkg/store"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the sqlbee collector server",
	Long: `Run the sqlbee collector server.

The collector accepts spans from instrumented applications and stores
them in PostgreSQL. It requires the SQLBEE_DATABASE_URL (or DATABASE_URL)
environment variable.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		if db.URL() == "" {
			fmt.Fprintln(os.Stderr, "SQLBEE_DATABASE_URL or DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		spanStore, err := store.NewStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to connect to DB: %v\n", err)
			os.Exit(1)
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(spanStore, cfg, host, port)

		endpoints.RegisterAll(s)

		// Rotate the team key when the config file changes
		watchConfig, _ := cmd.Flags().GetBool("watch-config")
		if watchConfig {
			go func() {
				err := config.Watch(cmd.Context(), func(newCfg *config.Config) {
					s.Auth.SetKey(newCfg.APIKey)
				})
				if err != nil {
					log.Printf("Config watch stopped: %v", err)
				}
			}()
		}

		log.Printf("Running collector at http://%s:%s...\n", host, port)
		log.Fatal(s.Start())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "collector listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "collector bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("watch-config", false, "reload the config file on change")
}
