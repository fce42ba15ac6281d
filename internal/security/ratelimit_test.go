package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	defer rl.Stop()

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per client")
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.sweep(time.Now().Add(3 * time.Minute))

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterStopTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()
}

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:4242"
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	r.Header.Set("X-Real-IP", "10.0.0.9")
	assert.Equal(t, "203.0.113.7", resolver.ClientIP(r))

	var unset *ClientIPResolver
	assert.Equal(t, "203.0.113.7", unset.ClientIP(r))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"127.0.0.1", "10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"single hop", map[string]string{"X-Forwarded-For": "198.51.100.4"}, "127.0.0.1:1234", "198.51.100.4"},
		{"spoofed leftmost hop", map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.4"}, "127.0.0.1:1234", "198.51.100.4"},
		{"chained trusted proxies", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.1.2.3"}, "127.0.0.1:1234", "198.51.100.4"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.0.0.5, 10.0.0.6"}, "127.0.0.1:1234", "10.0.0.5"},
		{"garbage hop", map[string]string{"X-Forwarded-For": "not-an-ip"}, "127.0.0.1:1234", "127.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "10.9.9.9:1234", "198.51.100.9"},
		{"no headers", nil, "10.9.9.9:5555", "10.9.9.9"},
		{"untrusted peer", map[string]string{"X-Forwarded-For": "198.51.100.4"}, "192.168.1.5:5555", "192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(r))
		})
	}
}

func TestNewClientIPResolverRejectsBadEntries(t *testing.T) {
	for _, entry := range []string{"10.0.0.0/33", "proxy.internal"} {
		_, err := NewClientIPResolver([]string{entry})
		assert.Error(t, err, entry)
	}
}
