package cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New(true)
	etag := c.Set("k", []byte("v"), time.Minute)

	data, gotTag, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(data) != "v" || gotTag != etag {
		t.Errorf("got %q/%q, want v/%q", data, gotTag, etag)
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("v"), -time.Second)
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestDisabledCacheNeverHits(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("v"), time.Minute)
	if etag == "" {
		t.Error("disabled cache must still compute etags")
	}
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("disabled cache should never hit")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("v"), time.Minute)
	c.Invalidate("k")
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("invalidated entry should miss")
	}
}

func TestETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	if !CheckETagMatch(etag, etag) {
		t.Error("identical etags must match")
	}
	if !CheckETagMatch("*", etag) {
		t.Error("wildcard must match")
	}
	if CheckETagMatch("", etag) {
		t.Error("empty header must not match")
	}
	other := ComputeETag([]byte("other"))
	if CheckETagMatch(other, etag) {
		t.Error("different payloads must not match")
	}
}
