package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrTLSCertFileRequired = errors.New("transport: tls cert file required")
	ErrTLSKeyFileRequired  = errors.New("transport: tls key file required")
	ErrTLSCAFileRequired   = errors.New("transport: tls ca file required")
	ErrTLSInvalidCA        = errors.New("transport: tls ca file has no certificates")
)

// TLSConfig secures a TCP link to a remote bridge.
type TLSConfig struct {
	Enabled            bool
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// Validate checks that the configured files form a usable client setup.
func (c TLSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.CAFile) == "" && !c.InsecureSkipVerify {
		return ErrTLSCAFileRequired
	}
	hasCert := strings.TrimSpace(c.CertFile) != ""
	hasKey := strings.TrimSpace(c.KeyFile) != ""
	if hasCert && !hasKey {
		return ErrTLSKeyFileRequired
	}
	if hasKey && !hasCert {
		return ErrTLSCertFileRequired
	}
	return nil
}

// ClientConfig builds the crypto/tls client config. It returns nil when
// TLS is disabled.
func (c TLSConfig) ClientConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         strings.TrimSpace(c.ServerName),
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if ca := strings.TrimSpace(c.CAFile); ca != "" {
		pem, err := os.ReadFile(ca)
		if err != nil {
			return nil, fmt.Errorf("transport: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrTLSInvalidCA
		}
		out.RootCAs = pool
	}
	if cert := strings.TrimSpace(c.CertFile); cert != "" {
		pair, err := tls.LoadX509KeyPair(cert, strings.TrimSpace(c.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("transport: load client keypair: %w", err)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}
