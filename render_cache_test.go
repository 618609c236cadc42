package skyline

import (
	"bytes"
	"fmt"
	"testing"
)

func TestRenderCachePutGet(t *testing.T) {
	cache := NewRenderCache(RenderCacheConfig{MaxEntries: 4})
	res, err := Render(thresholdScenario, testContext(6), DefaultOptions(), testIndex(t))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	key := RequestKey(thresholdScenario, testContext(6), DefaultOptions())
	if _, ok := cache.Get(key); ok {
		t.Fatal("hit on empty cache")
	}
	if err := cache.Put(key, res); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("miss after Put")
	}
	if !bytes.Equal(got.PNG, res.PNG) {
		t.Error("cached PNG differs")
	}
	enc1, _ := EncodeGraphDef(res.GraphDef)
	enc2, _ := EncodeGraphDef(got.GraphDef)
	if !bytes.Equal(enc1, enc2) {
		t.Error("cached GraphDef differs")
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits / %d misses, want 1/1", hits, misses)
	}
}

func TestRenderCacheEviction(t *testing.T) {
	cache := NewRenderCache(RenderCacheConfig{MaxEntries: 2})
	res, err := Render("name,sps,:eq,:sum", testContext(6), DefaultOptions(), testIndex(t))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := cache.Put(fmt.Sprintf("key-%d", i), res); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if _, ok := cache.Get("key-0"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := cache.Get("key-2"); !ok {
		t.Error("newest entry evicted")
	}
}

func TestRequestKeyDiscriminates(t *testing.T) {
	base := RequestKey("name,sps,:eq", testContext(6), DefaultOptions())

	if got := RequestKey("name,sps,:eq", testContext(6), DefaultOptions()); got != base {
		t.Error("identical requests produced different keys")
	}
	if got := RequestKey("name,cpu,:eq", testContext(6), DefaultOptions()); got == base {
		t.Error("different programs share a key")
	}
	if got := RequestKey("name,sps,:eq", testContext(12), DefaultOptions()); got == base {
		t.Error("different windows share a key")
	}
	opts := DefaultOptions()
	opts.Theme = ThemeDark
	if got := RequestKey("name,sps,:eq", testContext(6), opts); got == base {
		t.Error("different themes share a key")
	}
}
