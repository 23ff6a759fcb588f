package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateServerTLS tests the bridge listener TLS validation
func TestValidateServerTLS(t *testing.T) {
	tests := []struct {
		name        string
		tls         ServerTLSConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "disabled mode",
			tls:  ServerTLSConfig{Mode: "disabled"},
		},
		{
			name: "server mode valid",
			tls: ServerTLSConfig{
				Mode:     "server",
				CertFile: "/path/to/cert.pem",
				KeyFile:  "/path/to/key.pem",
			},
		},
		{
			name:        "server mode without key",
			tls:         ServerTLSConfig{Mode: "server", CertFile: "/path/to/cert.pem"},
			expectError: true,
			errorMsg:    "TLS certificate and key files are required",
		},
		{
			name:        "mutual mode is not offered",
			tls:         ServerTLSConfig{Mode: "mutual"},
			expectError: true,
			errorMsg:    "invalid TLS mode: mutual",
		},
		{
			name: "bad version",
			tls: ServerTLSConfig{
				Mode:       "server",
				CertFile:   "/path/to/cert.pem",
				KeyFile:    "/path/to/key.pem",
				MinVersion: "1.1",
			},
			expectError: true,
			errorMsg:    "invalid TLS minVersion: 1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServerTLS(tt.tls)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestValidateClientTLS tests endpoint TLS validation
func TestValidateClientTLS(t *testing.T) {
	tests := []struct {
		name        string
		tls         ClientTLSConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "empty",
			tls:  ClientTLSConfig{},
		},
		{
			name: "ca only",
			tls:  ClientTLSConfig{CAFile: "/path/to/ca.pem"},
		},
		{
			name: "client cert from content",
			tls:  ClientTLSConfig{CertContent: "cert", KeyContent: "key"},
		},
		{
			name:        "cert without key",
			tls:         ClientTLSConfig{CertFile: "/path/to/cert.pem"},
			expectError: true,
			errorMsg:    "must be provided together",
		},
		{
			name:        "duplicate cert sources",
			tls:         ClientTLSConfig{CertFile: "/c.pem", CertContent: "cert", KeyFile: "/k.pem"},
			expectError: true,
			errorMsg:    "cannot specify both certFile and certContent",
		},
		{
			name:        "duplicate ca sources",
			tls:         ClientTLSConfig{CAFile: "/ca.pem", CAContent: "ca"},
			expectError: true,
			errorMsg:    "cannot specify both caFile and caContent",
		},
		{
			name:        "bad version",
			tls:         ClientTLSConfig{MinVersion: "1.0"},
			expectError: true,
			errorMsg:    "invalid TLS minVersion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateClientTLS(tt.tls)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildClientTLSDefaultsToNil(t *testing.T) {
	cfg, err := ClientTLSConfig{MinVersion: "1.2"}.BuildClientTLS()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBuildClientTLSWithCertificates(t *testing.T) {
	certPEM, keyPEM := generateSelfSigned(t)
	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(caFile, certPEM, 0600))

	cfg, err := ClientTLSConfig{
		CAFile:      caFile,
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		MinVersion:  "1.3",
		ServerName:  "analysis.internal",
	}.BuildClientTLS()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	assert.Equal(t, "analysis.internal", cfg.ServerName)
	assert.NotNil(t, cfg.RootCAs)
	assert.Len(t, cfg.Certificates, 1)
}

func TestBuildClientTLSRejectsGarbageCA(t *testing.T) {
	_, err := ClientTLSConfig{CAContent: "not a pem"}.BuildClientTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificates found")
}

func TestBuildServerTLS(t *testing.T) {
	cfg, err := ServerTLSConfig{Mode: "disabled"}.BuildServerTLS()
	require.NoError(t, err)
	assert.Nil(t, cfg)

	certPEM, keyPEM := generateSelfSigned(t)
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))

	cfg, err = ServerTLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile}.BuildServerTLS()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Len(t, cfg.Certificates, 1)
}

func generateSelfSigned(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "resumeform-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}
