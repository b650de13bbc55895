package cmd

import (
	"github.com/spf13/cobra"

	"github.com/curaious/oneflow/internal/api"
	"github.com/curaious/oneflow/internal/config"
	"github.com/curaious/oneflow/internal/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run migrations and start the OneFlow API server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		s := api.New()
		s.Start()
	},
}

// Register the "server" command
func init() {
	rootCmd.AddCommand(serverCmd)
}
