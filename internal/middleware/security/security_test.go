package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.5:1234", want: "203.0.113.5"},
		{name: "untrusted proxy ignored", remote: "203.0.113.5:1234", xff: "1.2.3.4", want: "203.0.113.5"},
		{name: "trusted proxy xff", remote: "10.0.0.2:80", xff: "198.51.100.7, 10.0.0.2", want: "198.51.100.7"},
		{name: "trusted proxy real ip", remote: "127.0.0.1:80", xri: "198.51.100.8", want: "198.51.100.8"},
		{name: "garbage xff", remote: "10.0.0.2:80", xff: "nope", want: "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "100.64.1.2:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")

	if got := d.ClientIP(r); got != "100.64.1.2" {
		t.Fatalf("before: got %q", got)
	}
	if err := d.AddTrustedProxy("100.64.0.0/10"); err != nil {
		t.Fatal(err)
	}
	if got := d.ClientIP(r); got != "198.51.100.7" {
		t.Fatalf("after: got %q", got)
	}
	if err := d.AddTrustedProxy("100.64.0.1"); err == nil {
		t.Fatal("expected error for address without mask")
	}
}

func TestDetectorMiddleware(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   int
	}{
		{name: "normal", method: http.MethodGet, target: "/api/invoices?filter=due", want: http.StatusOK},
		{name: "traversal", method: http.MethodGet, target: "/api/../.env", want: http.StatusBadRequest},
		{name: "scanner", method: http.MethodGet, target: "/", ua: "sqlmap/1.7", want: http.StatusBadRequest},
		{name: "trace method", method: "TRACE", target: "/", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.ua != "" {
				r.Header.Set("User-Agent", tt.ua)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if d.GetMetrics().SuspiciousRequests != 3 {
		t.Fatalf("metrics %+v", d.GetMetrics())
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("headers %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS set on plain HTTP")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS %q", rec.Header().Get("Strict-Transport-Security"))
	}
}
