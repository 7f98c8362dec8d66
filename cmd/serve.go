package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/metrics"
	"github.com/RyanBlaney/melodraw/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API",
	Long:  `Serves key detection, the scale catalog and saved melodies over HTTP.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := cfg.Catalog()
		if err != nil {
			return err
		}
		rec, err := metrics.NewRecorder(metrics.WithNamespace("melodraw"))
		if err != nil {
			return err
		}
		detector, err := newDetector(cat, rec)
		if err != nil {
			return err
		}

		decoder := newDecoder()
		if err := decoder.ValidateConfig(cmd.Context()); err != nil {
			logger.Warn("Audio decoding unavailable", logging.Fields{"error": err.Error()})
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Addr
		}
		srv := server.New(server.Options{
			Catalog:  cat,
			Detector: detector,
			Decoder:  decoder,
			Metrics:  rec,
			BPM:      cfg.BPM,
			Logger:   logger,
		})
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}
