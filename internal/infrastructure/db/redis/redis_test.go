package redis

import (
	"testing"
	"time"
)

func TestConfigOptions_Defaults(t *testing.T) {
	opts := Config{Addr: "cache:6379", DB: 2}.Options()

	if opts.Addr != "cache:6379" || opts.DB != 2 {
		t.Fatalf("unexpected address options: %+v", opts)
	}
	if opts.PoolSize != defaultPoolSize {
		t.Fatalf("expected default pool size, got %d", opts.PoolSize)
	}
	if opts.DialTimeout != defaultTimeout || opts.ReadTimeout != defaultTimeout || opts.WriteTimeout != defaultTimeout {
		t.Fatalf("expected default timeouts, got %v/%v/%v", opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout)
	}
}

func TestConfigOptions_Overrides(t *testing.T) {
	opts := Config{Addr: "cache:6379", Password: "pw", PoolSize: 32, Timeout: 750 * time.Millisecond}.Options()

	if opts.Password != "pw" || opts.PoolSize != 32 {
		t.Fatalf("overrides not applied: %+v", opts)
	}
	if opts.ReadTimeout != 750*time.Millisecond || opts.PoolTimeout != 750*time.Millisecond {
		t.Fatalf("timeout not applied: %v", opts.ReadTimeout)
	}
}
