package cache

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

// syncLoader resolves loads from a fixed map and records call counts.
type syncLoader struct {
	mu    sync.Mutex
	imgs  map[string]image.Image
	calls map[string]int
}

func newSyncLoader(srcs ...string) *syncLoader {
	l := &syncLoader{imgs: make(map[string]image.Image), calls: make(map[string]int)}
	for _, src := range srcs {
		l.imgs[src] = image.NewRGBA(image.Rect(0, 0, 4, 4))
	}
	return l
}

func (l *syncLoader) load(src string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[src]++
	img, ok := l.imgs[src]
	if !ok {
		return nil, errors.New("not found")
	}
	return img, nil
}

func (l *syncLoader) callCount(src string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[src]
}

// waitReady polls until the icon settles or the deadline passes.
func waitReady(t *testing.T, c *IconCache, src string) Icon {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if icon, ok := c.Get(src); ok && icon.State != IconLoading {
			return icon
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("icon %q never settled", src)
	return Icon{}
}

func TestIconCacheLoad(t *testing.T) {
	loader := newSyncLoader("pin.png")
	c := NewIconCache(loader.load)

	done := make(chan struct{})
	icon := c.GetOrLoad("pin.png", func() { close(done) })
	if icon.State != IconLoading {
		t.Fatalf("first GetOrLoad state = %v, want IconLoading", icon.State)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onReady never fired")
	}

	icon = waitReady(t, c, "pin.png")
	if icon.State != IconReady {
		t.Fatalf("state = %v, want IconReady (err: %v)", icon.State, icon.Err)
	}
	if icon.Image == nil {
		t.Error("ready icon has nil image")
	}
	if got := loader.callCount("pin.png"); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}

	// A second lookup hits the cache and does not reload.
	c.GetOrLoad("pin.png", nil)
	if got := loader.callCount("pin.png"); got != 1 {
		t.Errorf("loader called %d times after cache hit, want 1", got)
	}
}

func TestIconCacheLoadError(t *testing.T) {
	loader := newSyncLoader() // empty: every load fails
	c := NewIconCache(loader.load)

	c.GetOrLoad("missing.png", nil)
	icon := waitReady(t, c, "missing.png")
	if icon.State != IconError {
		t.Fatalf("state = %v, want IconError", icon.State)
	}
	if icon.Err == nil {
		t.Error("error icon has nil Err")
	}
}

func TestIconCacheNilLoader(t *testing.T) {
	c := NewIconCache(nil)
	c.GetOrLoad("anything.png", nil)
	icon := waitReady(t, c, "anything.png")
	if icon.State != IconError {
		t.Fatalf("state = %v, want IconError", icon.State)
	}
	if !errors.Is(icon.Err, ErrNoLoader) {
		t.Errorf("err = %v, want ErrNoLoader", icon.Err)
	}
}

func TestIconCacheExpireTwoCycles(t *testing.T) {
	loader := newSyncLoader("a.png", "b.png")
	c := NewIconCache(loader.load)

	c.GetOrLoad("a.png", nil)
	c.GetOrLoad("b.png", nil)
	waitReady(t, c, "a.png")
	waitReady(t, c, "b.png")

	// First sweep clears the used marks; nothing is evicted yet.
	c.Expire()
	if got := c.Len(); got != 2 {
		t.Fatalf("Len after first sweep = %d, want 2", got)
	}

	// Touch only a.png, then sweep again: b.png goes, a.png stays.
	c.GetOrLoad("a.png", nil)
	c.Expire()
	if got := c.Len(); got != 1 {
		t.Fatalf("Len after second sweep = %d, want 1", got)
	}
	if _, ok := c.Get("a.png"); !ok {
		t.Error("touched icon was evicted")
	}
	if _, ok := c.Get("b.png"); ok {
		t.Error("untouched icon survived two sweeps")
	}
}

func TestIconCacheExpireKeepsInFlight(t *testing.T) {
	release := make(chan struct{})
	c := NewIconCache(func(string) (image.Image, error) {
		<-release
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})

	c.GetOrLoad("slow.png", nil)
	c.Expire()
	c.Expire()
	if got := c.Len(); got != 1 {
		t.Fatalf("in-flight load evicted: Len = %d, want 1", got)
	}

	close(release)
	icon := waitReady(t, c, "slow.png")
	if icon.State != IconReady {
		t.Errorf("state = %v, want IconReady", icon.State)
	}
}

func TestIconCacheConcurrent(t *testing.T) {
	loader := newSyncLoader("shared.png")
	c := NewIconCache(loader.load)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.GetOrLoad("shared.png", nil)
			}
		}()
	}
	wg.Wait()

	waitReady(t, c, "shared.png")
	if got := loader.callCount("shared.png"); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}
