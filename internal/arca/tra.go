package arca

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/smallstep/pkcs7"
)

// WSAA rejects access requests with a validity window longer than 12 hours.
const maxTRATTL = 12 * time.Hour

const traTimeLayout = "2006-01-02T15:04:05"

type loginTicketRequest struct {
	XMLName        xml.Name `xml:"loginTicketRequest"`
	Version        string   `xml:"version,attr"`
	UniqueID       int64    `xml:"header>uniqueId"`
	GenerationTime string   `xml:"header>generationTime"`
	ExpirationTime string   `xml:"header>expirationTime"`
	Service        string   `xml:"service"`
}

// BuildTRA produces the access-request document (TRA) for a service. The TTL
// is clamped to the 12-hour ceiling regardless of what was asked for.
func BuildTRA(service string, ttl time.Duration, now time.Time) ([]byte, error) {
	if ttl <= 0 || ttl > maxTRATTL {
		ttl = maxTRATTL
	}
	now = now.UTC()
	doc := loginTicketRequest{
		Version:        "1.0",
		UniqueID:       now.Unix(),
		GenerationTime: now.Format(traTimeLayout),
		ExpirationTime: now.Add(ttl).Format(traTimeLayout),
		Service:        service,
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("arca: marshal tra: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// LoadCertificate parses an X.509 certificate from PEM or DER bytes.
func LoadCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, certErr(err, "parse certificate")
	}
	return cert, nil
}

// LoadPrivateKey parses an RSA private key from PEM or DER bytes. PKCS#1 and
// PKCS#8 encodings are accepted.
func LoadPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	raw := data
	if block, _ := pem.Decode(data); block != nil {
		raw = block.Bytes
	}
	if key, err := x509.ParsePKCS1PrivateKey(raw); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(raw)
	if err != nil {
		return nil, certErr(err, "parse private key")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, certErr(nil, "private key is not RSA")
	}
	return rsaKey, nil
}

// VerifyCertificateValidity checks the certificate's temporal validity window.
func VerifyCertificateValidity(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return certErr(nil, "certificate not yet valid, valid from %s", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return certErr(nil, "certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// SignTRA wraps the TRA in a detached CMS/PKCS#7 SHA-256 signature and
// base64-encodes the DER result, ready for loginCms.
func SignTRA(tra []byte, cert *x509.Certificate, key *rsa.PrivateKey) (string, error) {
	sd, err := pkcs7.NewSignedData(tra)
	if err != nil {
		return "", certErr(err, "init signed data")
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return "", certErr(err, "add signer")
	}
	sd.Detach()
	der, err := sd.Finish()
	if err != nil {
		return "", certErr(err, "sign tra")
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// CreateSignedTRA builds and signs a TRA in one step. The certificate and key
// are parsed from their raw bytes and the certificate must be inside its
// validity window.
func CreateSignedTRA(certData, keyData []byte, service string, ttl time.Duration, now time.Time) (string, error) {
	cert, err := LoadCertificate(certData)
	if err != nil {
		return "", err
	}
	key, err := LoadPrivateKey(keyData)
	if err != nil {
		return "", err
	}
	if err := VerifyCertificateValidity(cert, now); err != nil {
		return "", err
	}
	if !key.PublicKey.Equal(cert.PublicKey) {
		return "", certErr(nil, "private key does not match certificate")
	}
	tra, err := BuildTRA(service, ttl, now)
	if err != nil {
		return "", certErr(err, "build tra")
	}
	return SignTRA(tra, cert, key)
}

// CertInfo is the logical metadata of a signing certificate.
type CertInfo struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_valid_before"`
	NotAfter     time.Time `json:"not_valid_after"`
	Fingerprint  string    `json:"public_key_fingerprint"`
}

// InspectCertificate extracts metadata from a PEM or DER certificate.
func InspectCertificate(data []byte) (CertInfo, error) {
	cert, err := LoadCertificate(data)
	if err != nil {
		return CertInfo{}, err
	}
	if cert.SerialNumber == nil {
		return CertInfo{}, certErr(errors.New("missing serial"), "inspect certificate")
	}
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return CertInfo{
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: cert.SerialNumber.String(),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		Fingerprint:  hex.EncodeToString(sum[:]),
	}, nil
}
