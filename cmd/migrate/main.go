// Herramienta de migraciones de esquema (golang-migrate sobre las
// migraciones embebidas del adapter de Postgres).
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"person-registry/internal/adapters/storage/postgres"
	"person-registry/internal/platform/config"
)

var (
	envFlag string
	db      *sql.DB
)

var rootCmd = &cobra.Command{
	Use:              "migrate",
	Short:            "Database migration tool for person-registry",
	PersistentPreRun: setupDatabase,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run:   runUp,
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations (default: 1)",
	Args:  cobra.MaximumNArgs(1),
	Run:   runDown,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	Run:   runVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "dev", "environment (dev, test, prod)")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) {
	if err := config.Init(envFlag); err != nil {
		fail("config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}

	dsn := cfg.Database.ConnectionString()
	if dsn == "" {
		fail("no database configured (set DB_DSN or DB_PASSWORD)")
	}
	db, err = postgres.Open(dsn)
	if err != nil {
		fail("postgres: %v", err)
	}
}

func migrator() *migrate.Migrate {
	m, err := postgres.NewMigrator(db)
	if err != nil {
		fail("migrate: %v", err)
	}
	return m
}

func runUp(cmd *cobra.Command, args []string) {
	if err := migrator().Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no pending migrations")
			return
		}
		fail("migrate up: %v", err)
	}
	fmt.Println("migrations applied")
}

func runDown(cmd *cobra.Command, args []string) {
	steps := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fail("invalid steps %q", args[0])
		}
		steps = n
	}
	if err := migrator().Steps(-steps); err != nil {
		fail("migrate down: %v", err)
	}
	fmt.Printf("rolled back %d migration(s)\n", steps)
}

func runVersion(cmd *cobra.Command, args []string) {
	version, dirty, err := migrator().Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied yet")
			return
		}
		fail("migrate version: %v", err)
	}
	fmt.Printf("version=%d dirty=%v\n", version, dirty)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
