package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/raiden/internal/config"
	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/logging"
	"github.com/zzenonn/raiden/internal/repository/diskstore"
	"github.com/zzenonn/raiden/internal/service"
)

var (
	cfg           *config.Config
	configPath    string
	stripeService *service.StripeService
)

var rootCmd = &cobra.Command{
	Use:           "raiden",
	Short:         "Stripe files across disks with rotating XOR parity",
	Long:          "Split a file into N disk files with RAID-5 style parity and merge them back, tolerating one missing disk",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("chunk-size", domain.DefaultChunkSize, fmt.Sprintf("Chunk size in bytes; must match between split and merge (use %d for sets in the legacy 4-byte chunk format)", domain.LegacyChunkSize))
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress bars")
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	diskRepository := diskstore.NewLocalDiskRepository()
	stripeService = service.NewStripeService(diskRepository, cfg.ChunkSize, cfg.Quiet)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
