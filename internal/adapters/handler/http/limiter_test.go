package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddressLimiterPerAddress(t *testing.T) {
	l := NewAddressLimiter(1, 2)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
}

func TestAddressLimiterSweep(t *testing.T) {
	l := NewAddressLimiter(1, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	l.Allow("1.1.1.1")
	now = now.Add(30 * time.Second)
	l.Allow("2.2.2.2")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, l.Sweep(45*time.Second))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "2.2.2.2")
}

func TestAddressResolver(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	assert.Equal(t, "203.0.113.5, 10.0.0.1", AddressResolver{TrustForwardedFor: true}.Resolve(req))
	assert.Equal(t, "192.0.2.1", AddressResolver{}.Resolve(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.9")
	assert.Equal(t, "198.51.100.9", AddressResolver{TrustForwardedFor: true}.Resolve(req))

	req.RemoteAddr = "[::ffff:192.0.2.1]:80"
	assert.Equal(t, "::ffff:192.0.2.1", AddressResolver{}.Resolve(req))
}
