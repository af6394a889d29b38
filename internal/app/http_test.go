package app

import (
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestNewFetchHTTPClient_Config(t *testing.T) {
	c := newFetchHTTPClient(10 * time.Second)
	if c.Timeout != 20*time.Second {
		t.Fatalf("timeout=%v, want twice the per-request bound", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.Proxy == nil {
		t.Fatalf("expected proxy from environment")
	}
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}

	if c := newFetchHTTPClient(0); c.Timeout != 2*DefaultFetchTimeout {
		t.Fatalf("zero timeout should use default, got %v", c.Timeout)
	}
}
