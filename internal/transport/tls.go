package transport

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/go-faster/errors"
)

// ALPN protocol negotiated on QUIC connections.
const NextProto = "tickwire/1"

const selfSignedValidFor = 365 * 24 * time.Hour

// SelfSigned holds a generated certificate and a pool that trusts it.
type SelfSigned struct {
	Certificate tls.Certificate
	Pool        *x509.CertPool
}

// GenerateSelfSigned creates an ed25519 certificate valid for hosts. IP
// literals become IP SANs and everything else a DNS SAN.
func GenerateSelfSigned(hosts ...string) (*SelfSigned, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate ed25519 key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, errors.Wrap(err, "generate serial")
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"tickwire"}, CommonName: "tickwire"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(selfSignedValidFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, pub, priv)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate")
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(err, "parse certificate")
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return &SelfSigned{
		Certificate: tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv, Leaf: leaf},
		Pool:        pool,
	}, nil
}

// ServerTLSConfig returns the listener side configuration.
func (s *SelfSigned) ServerTLSConfig() *tls.Config {
	return ServerTLSConfig(s.Certificate)
}

// ClientTLSConfig returns a dialer configuration that trusts only s.
func (s *SelfSigned) ClientTLSConfig(serverName string) *tls.Config {
	return ClientTLSConfig(s.Pool, serverName)
}

// WritePEM stores the certificate so clients can trust it with ca_file.
func (s *SelfSigned) WritePEM(path string) error {
	block := &pem.Block{Type: "CERTIFICATE", Bytes: s.Certificate.Certificate[0]}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o644); err != nil {
		return errors.Wrap(err, "write certificate")
	}
	return nil
}

func ServerTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{NextProto},
		MinVersion:   tls.VersionTLS13,
	}
}

// ClientTLSConfig verifies the server against roots. A nil pool means the
// system roots.
func ClientTLSConfig(roots *x509.CertPool, serverName string) *tls.Config {
	return &tls.Config{
		RootCAs:    roots,
		ServerName: serverName,
		NextProtos: []string{NextProto},
		MinVersion: tls.VersionTLS13,
	}
}

// LoadServerTLS reads a PEM certificate and key pair.
func LoadServerTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load key pair")
	}
	return ServerTLSConfig(cert), nil
}

// LoadClientTLS trusts the PEM certificates in caFile, or the system roots
// when caFile is empty.
func LoadClientTLS(caFile, serverName string) (*tls.Config, error) {
	if caFile == "" {
		return ClientTLSConfig(nil, serverName), nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, errors.Wrap(err, "read ca file")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, errors.Errorf("no certificates in %s", caFile)
	}
	return ClientTLSConfig(pool, serverName), nil
}
