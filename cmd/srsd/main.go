// Command srsd serves the collection over HTTP as a cobra root command,
// taking a --config flag instead of hardcoded paths.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	srscore "github.com/flashgrid/srscore"
	"github.com/flashgrid/srscore/internal/applog"
	"github.com/flashgrid/srscore/internal/config"
	"github.com/flashgrid/srscore/internal/httpapi"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "srsd",
	Short: "srsd serves a flashcard collection over HTTP",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "srsd.yaml", "path to the daemon config file")
}

func run(cmd *cobra.Command, args []string) error {
	logger := applog.New("srsd")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	col, err := srscore.Open(cfg.Database.Path, cfg.Backup.Dir)
	if err != nil {
		return fmt.Errorf("open collection: %w", err)
	}
	defer col.Close(true)

	handler := httpapi.NewHandler(col)
	router := handler.Router(cfg.Server.AllowedOrigins)

	logger.Printf("listening on %s", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, router)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
