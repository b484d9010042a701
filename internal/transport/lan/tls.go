package lan

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// NewEphemeralCert mints a throwaway self-signed TLS certificate for one
// relay listener's lifetime. The teacher's generateTLSConfig builds a
// cert for a long-running, multi-client HTTPS server: it needs
// CA-signing capability and a configurable hostname/SAN list because
// operators point arbitrary DNS names at it over its whole uptime. A
// relay session has none of that: exactly one client dials the IP:port
// the CLI just printed, pins the cert by its fingerprint (logged at
// startup) rather than trusting a chain, and the process — and the cert
// with it — is thrown away at the end of the session. So there is no
// hostname to serve, no client-auth or cert-signing use, and no SAN
// list to build: the certificate only ever needs to assert ServerAuth
// for "localhost".
func NewEphemeralCert(validity time.Duration) (*tls.Config, string, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, "", fmt.Errorf("[lan/tls] generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, "", fmt.Errorf("[lan/tls] generate serial: %w", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "flo-relay"},
		// Backdated an hour to tolerate clock skew between the relay
		// host and the client dialing it moments later.
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, "", fmt.Errorf("[lan/tls] create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, "", fmt.Errorf("[lan/tls] parse certificate: %w", err)
	}

	fp := sha256.Sum256(certDER)
	fingerprint := hex.EncodeToString(fp[:])

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{certDER},
			PrivateKey:  key,
			Leaf:        cert,
		}},
	}

	return tlsConfig, fingerprint, nil
}
