package server

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"jidl/errs"
)

// TLSConfig holds the paths §6 names as the `ipc_*` keys of the `[]` global
// configuration section.
// Keystore and Truststore are PEM files: the keystore carries this server's
// own certificate followed by its private key, the truststore carries the
// CA certificate(s) client certs are verified against. KeystorePassword, if
// non-empty, decrypts an RFC 1423 encrypted PEM private-key block.
type TLSConfig struct {
	Keystore         string
	KeystorePassword string
	Truststore       string
	TruststorePassword string
}

// strongCipherSuite is the one TLS 1.2 cipher suite the listener accepts, per
// §4.6's "restricts the cipher suite set to one strong suite" and §6's named
// choice, TLS_RSA_WITH_AES_128_GCM_SHA256.
const strongCipherSuite = tls.TLS_RSA_WITH_AES_128_GCM_SHA256

// Build loads the keystore/truststore and returns a *tls.Config requiring and
// verifying a client certificate, restricted to TLS 1.2 and one cipher suite.
func (c TLSConfig) Build() (*tls.Config, error) {
	cert, err := loadKeyPair(c.Keystore, c.KeystorePassword)
	if err != nil {
		return nil, fmt.Errorf("server: keystore: %w", err)
	}
	pool, err := loadCAPool(c.Truststore)
	if err != nil {
		return nil, fmt.Errorf("server: truststore: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS12,
		CipherSuites: []uint16{strongCipherSuite},
	}, nil
}

// loadKeyPair reads a PEM bundle containing a certificate block followed by a
// private key block. password, if non-empty, is used to decrypt an
// encrypted key block.
func loadKeyPair(path, password string) (tls.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %v", errs.ErrAuthMaterialInvalid, err)
	}

	var certPEM, keyPEM []byte
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case block.Type == "RSA PRIVATE KEY" || block.Type == "PRIVATE KEY" || block.Type == "EC PRIVATE KEY":
			if password != "" && x509.IsEncryptedPEMBlock(block) { //lint:ignore SA1019 deciphers legacy encrypted PEM keys
				der, decErr := x509.DecryptPEMBlock(block, []byte(password)) //lint:ignore SA1019 matches the legacy keystore format
				if decErr != nil {
					return tls.Certificate{}, fmt.Errorf("%w: decrypt key: %v", errs.ErrAuthMaterialInvalid, decErr)
				}
				keyPEM = pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der})
			} else {
				keyPEM = append(keyPEM, pem.EncodeToMemory(block)...)
			}
		}
	}
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: keystore %q missing certificate or key block", errs.ErrAuthMaterialInvalid, path)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %v", errs.ErrAuthMaterialInvalid, err)
	}
	return cert, nil
}

// loadCAPool reads a PEM file of one or more CA certificates.
func loadCAPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthMaterialInvalid, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, fmt.Errorf("%w: truststore %q contains no usable certificate", errs.ErrAuthMaterialInvalid, path)
	}
	return pool, nil
}
