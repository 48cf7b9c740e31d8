package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/config"
	"github.com/mydebugger/jwtkit/pkg/jwks"
	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/logger"
	"github.com/mydebugger/jwtkit/pkg/telemetry"
)

var (
	cfgFile string
	v       = config.InitViper("jwtkit")
	cfg     config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jwtkit",
	Short: "Decode, verify, sign and audit JSON Web Tokens",
	Long: `jwtkit inspects JSON Web Tokens.

It decodes tokens without trusting them, verifies HS/RS/ES signatures,
signs new tokens, reports security findings and matches tokens against
JWKS key sets. Tokens are read from the first argument or from stdin.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	config.BindFlags(rootCmd, v)
}

func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.Load(v, &cfg); err != nil {
		return err
	}
	log = logger.New(logger.ComponentCLI, cfg.Service.LogLevel)
	return nil
}

func newAnalyzer() *jwtkit.Analyzer {
	return jwtkit.NewAnalyzer(
		jwtkit.WithClockSkew(cfg.Analyzer.ClockSkew),
		jwtkit.WithExpiringSoon(cfg.Analyzer.ExpiringSoon),
		jwtkit.WithLongLived(cfg.Analyzer.LongLived),
	)
}

func newFetcher() *jwks.Fetcher {
	return jwks.NewFetcher(jwks.Options{
		HTTPClient: telemetry.NewHTTPClient(cfg.JWKS.HTTPTimeout),
		Store:      jwks.NewMemoryStore(cfg.JWKS.CacheSize, cfg.JWKS.CacheTTL),
		Logger:     log.For(logger.ComponentJWKS).Logger,
	})
}

func cryptoLogger() *logger.Logger {
	return log.For(logger.ComponentCrypto)
}
