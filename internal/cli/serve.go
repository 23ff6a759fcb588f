package cli

import (
	"fmt"

	"resumeform/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve browser form sessions over a websocket bridge",
	Long: `Start the bridge server. A browser page opens a websocket on /ws and relays
its DOM events (file picks, drag and drop, field edits, submit, reset);
the server runs the form for that page and streams back view operations.

Available endpoints:
- GET /ws: form session websocket
- GET /health: Health check, degraded while the endpoint circuit is open
- GET /stats: Server statistics and rate limiting info
- GET /metrics: Prometheus metrics (when observability is enabled)

TLS Configuration:
- Use --tls-mode server with --cert-file and --key-file to serve wss://`,
	RunE: runServe,
}

var serveFlags struct {
	port      string
	host      string
	staticDir string
	tlsMode   string
	certFile  string
	keyFile   string
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	f.StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	f.StringVar(&serveFlags.staticDir, "static-dir", "", "Directory with the form page to serve (overrides config)")
	f.StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server (overrides config)")
	f.StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	f.StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	overrides := []struct {
		flag   string
		value  string
		target *string
	}{
		{"port", serveFlags.port, &cfg.Server.Port},
		{"host", serveFlags.host, &cfg.Server.Host},
		{"static-dir", serveFlags.staticDir, &cfg.Server.StaticDir},
		{"tls-mode", serveFlags.tlsMode, &cfg.Server.TLS.Mode},
		{"cert-file", serveFlags.certFile, &cfg.Server.TLS.CertFile},
		{"key-file", serveFlags.keyFile, &cfg.Server.TLS.KeyFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target = o.value
		}
	}

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	rt, err := newFormRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	srv := server.NewServer(cfg, server.ConfigFromApp(cfg, Version), rt.client, rt.opts, logger)
	return srv.Start(rt.om)
}
