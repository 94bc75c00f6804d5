package rest

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestOriginIgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	h := &handler{deps: Deps{
		OriginSecret:   "origin-secret",
		TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	}}
	var got string
	chain := h.realIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = h.originProxy(r)
	}))
	origin := func(remoteAddr string, forwardedFor string) string {
		req := httptest.NewRequest(http.MethodPost, "/identifiers", nil)
		req.RemoteAddr = remoteAddr
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
			req.Header.Set("X-Real-IP", forwardedFor)
		}
		got = ""
		chain.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	direct := origin("203.0.113.7:5555", "")
	if direct == "" {
		t.Fatalf("originProxy() = empty with a secret configured")
	}
	if forged := origin("203.0.113.7:5555", "198.51.100.1"); forged != direct {
		t.Fatalf("forged X-Forwarded-For changed the origin: %q != %q", forged, direct)
	}
	if other := origin("203.0.113.7:6666", "198.51.100.2"); other != direct {
		t.Fatalf("origin depends on the port or header: %q != %q", other, direct)
	}

	client := origin("198.51.100.1:4000", "")
	if relayed := origin("10.1.2.3:443", "198.51.100.1"); relayed != client {
		t.Fatalf("trusted proxy origin = %q, want client origin %q", relayed, client)
	}
}

func TestOriginWithoutTrustedProxies(t *testing.T) {
	h := &handler{deps: Deps{OriginSecret: "origin-secret"}}
	if h.trustedPeer("10.1.2.3:443") {
		t.Fatalf("trustedPeer() = true with no trusted proxies")
	}
	h.deps.TrustedProxies = []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	if !h.trustedPeer("[::ffff:10.1.2.3]:443") {
		t.Fatalf("trustedPeer() = false for a mapped trusted address")
	}
	if h.trustedPeer("not-an-address") {
		t.Fatalf("trustedPeer() = true for a malformed address")
	}
}
