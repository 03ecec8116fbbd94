package config

import (
	"crypto/tls"
	"fmt"
)

// TLS secrets for the API server. Each is a PEM block, given inline or,
// more usually, through the *_FILE variant naming a mounted file.
const (
	TLSCertEnv = "GS_TLS_CERT"
	TLSKeyEnv  = "GS_TLS_KEY"
)

// LoadTLS resolves the API certificate and key through ResolveSecret.
// It returns nil when neither is set, and an error when only one is set or
// the pair does not parse.
func LoadTLS() (*tls.Config, error) {
	certPEM, err := ResolveSecret(TLSCertEnv)
	if err != nil {
		return nil, err
	}
	keyPEM, err := ResolveSecret(TLSKeyEnv)
	if err != nil {
		return nil, err
	}

	switch {
	case certPEM == "" && keyPEM == "":
		return nil, nil
	case certPEM == "":
		return nil, fmt.Errorf("%s is set but %s is not", TLSKeyEnv, TLSCertEnv)
	case keyPEM == "":
		return nil, fmt.Errorf("%s is set but %s is not", TLSCertEnv, TLSKeyEnv)
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("invalid TLS key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
