package certgen

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/CTFClient/internal/client/api"
)

func parseCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatalf("%s: not a certificate PEM", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}

func TestEnsureDevTLS(t *testing.T) {
	dir := t.TempDir()

	certFile, keyFile, err := EnsureDevTLS(dir, "localhost", "127.0.0.1")
	if err != nil {
		t.Fatalf("EnsureDevTLS: %v", err)
	}
	if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		t.Fatalf("server pair does not load: %v", err)
	}

	ca := parseCert(t, filepath.Join(dir, CACertFile))
	if !ca.IsCA {
		t.Fatal("ca.crt is not a CA")
	}
	leaf := parseCert(t, certFile)
	if len(leaf.DNSNames) != 1 || leaf.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", leaf.DNSNames)
	}
	if len(leaf.IPAddresses) != 1 || leaf.IPAddresses[0].String() != "127.0.0.1" {
		t.Errorf("IPAddresses = %v", leaf.IPAddresses)
	}

	pool := x509.NewCertPool()
	pool.AddCert(ca)
	if _, err := leaf.Verify(x509.VerifyOptions{
		DNSName:   "localhost",
		Roots:     pool,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	before, _ := os.ReadFile(filepath.Join(dir, CACertFile))
	if _, _, err := EnsureDevTLS(dir, "localhost"); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(filepath.Join(dir, CACertFile))
	if !bytes.Equal(before, after) {
		t.Error("existing CA was replaced")
	}
}

func TestIssueServerNeedsHosts(t *testing.T) {
	ca, _, _, err := NewCA("test")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ca.IssueServer(); err == nil {
		t.Fatal("expected error without hosts")
	}
}

func TestLoadCAErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	ca, caPEM, caKeyPEM, err := NewCA("test")
	if err != nil {
		t.Fatal(err)
	}
	leafPEM, leafKeyPEM, err := ca.IssueServer("localhost")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		cert     string
		key      string
		wantFail bool
	}{
		{"valid", write("ca.crt", caPEM), write("ca.key", caKeyPEM), false},
		{"missing cert", filepath.Join(dir, "nope.crt"), write("k1", caKeyPEM), true},
		{"garbage cert", write("bad.crt", []byte("not pem")), write("k2", caKeyPEM), true},
		{"leaf is not a CA", write("leaf.crt", leafPEM), write("leaf.key", leafKeyPEM), true},
		{"unsupported key", write("c3", caPEM), write("k3", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1}})), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCA(tt.cert, tt.key)
			if (err != nil) != tt.wantFail {
				t.Fatalf("LoadCA err = %v, wantFail %v", err, tt.wantFail)
			}
		})
	}
}

// The API client trusts the dev CA through WithCA.
func TestClientTrustsDevCA(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, err := EnsureDevTLS(dir, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}}
	srv.StartTLS()
	defer srv.Close()

	c, err := api.New(srv.URL, api.WithCA(filepath.Join(dir, CACertFile)))
	if err != nil {
		t.Fatal(err)
	}
	var out struct{ OK bool }
	if err := c.Get(context.Background(), "/ping", &out); err != nil {
		t.Fatalf("Get over TLS: %v", err)
	}
	if !out.OK {
		t.Error("unexpected body")
	}

	plain, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := plain.Get(context.Background(), "/ping", &out); err == nil {
		t.Error("expected an untrusted certificate error without the CA")
	}
}
