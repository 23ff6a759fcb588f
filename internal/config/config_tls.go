package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ValidateTLSConfig validates both the bridge listener and endpoint TLS settings
func (c *Config) ValidateTLSConfig() error {
	if err := validateServerTLS(c.Server.TLS); err != nil {
		return err
	}
	return validateClientTLS(c.Endpoint.TLS)
}

// validateServerTLS validates the TLS mode of the bridge listener
func validateServerTLS(tls ServerTLSConfig) error {
	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		if tls.CertFile == "" || tls.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required for server mode")
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", tls.Mode)
	}
	return validateTLSVersion(tls.MinVersion)
}

// validateClientTLS validates the settings used to reach the endpoint
func validateClientTLS(tls ClientTLSConfig) error {
	if err := validateNoDuplicateSources(tls); err != nil {
		return err
	}

	hasCert := tls.CertFile != "" || tls.CertContent != ""
	hasKey := tls.KeyFile != "" || tls.KeyContent != ""
	if hasCert != hasKey {
		return fmt.Errorf("client certificate and key must be provided together")
	}

	return validateTLSVersion(tls.MinVersion)
}

// validateNoDuplicateSources ensures no certificate is given as both file and content
func validateNoDuplicateSources(tls ClientTLSConfig) error {
	if tls.CertFile != "" && tls.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if tls.KeyFile != "" && tls.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}
	if tls.CAFile != "" && tls.CAContent != "" {
		return fmt.Errorf("cannot specify both caFile and caContent - choose one")
	}
	return nil
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(v string) error {
	switch v {
	case "", "1.2", "1.3":
		return nil // empty defaults to 1.2
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", v)
	}
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// BuildClientTLS creates the tls.Config used for endpoint connections.
// It returns nil when nothing deviates from Go's defaults.
func (t ClientTLSConfig) BuildClientTLS() (*tls.Config, error) {
	custom := t.CAFile != "" || t.CAContent != "" || t.CertFile != "" || t.CertContent != "" ||
		t.InsecureSkipVerify || t.ServerName != "" || t.MinVersion == "1.3"
	if !custom {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tlsVersion(t.MinVersion),
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}

	if ca, err := readPEM(t.CAContent, t.CAFile); err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	} else if ca != nil {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("no certificates found in CA bundle")
		}
		cfg.RootCAs = pool
	}

	certPEM, err := readPEM(t.CertContent, t.CertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client certificate: %w", err)
	}
	if certPEM != nil {
		keyPEM, err := readPEM(t.KeyContent, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client key: %w", err)
		}
		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// BuildServerTLS creates the tls.Config for the bridge listener.
func (t ServerTLSConfig) BuildServerTLS() (*tls.Config, error) {
	if t.Mode != "server" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key from files: %w", err)
	}
	return &tls.Config{
		MinVersion:   tlsVersion(t.MinVersion),
		Certificates: []tls.Certificate{cert},
	}, nil
}

// readPEM prefers inline content over a file path
func readPEM(content, path string) ([]byte, error) {
	if content != "" {
		return []byte(content), nil
	}
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
