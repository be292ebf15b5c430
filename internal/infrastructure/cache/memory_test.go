package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	t.Run("get on missing key returns cache miss", func(t *testing.T) {
		_, err := c.Get(ctx, "missing")
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("set then get roundtrips", func(t *testing.T) {
		if err := c.Set(ctx, "key", []byte(`{"a":1}`), time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := c.Get(ctx, "key")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `{"a":1}` {
			t.Errorf("Get() = %s, want {\"a\":1}", got)
		}
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		if err := c.Set(ctx, "short", []byte("v"), time.Millisecond); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		time.Sleep(5 * time.Millisecond)

		_, err := c.Get(ctx, "short")
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("stored value is isolated from caller mutation", func(t *testing.T) {
		value := []byte("original")
		if err := c.Set(ctx, "isolated", value, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		value[0] = 'X'

		got, _ := c.Get(ctx, "isolated")
		if string(got) != "original" {
			t.Errorf("Get() = %s, want original", got)
		}
	})
}

func TestMemoryCache_DeleteExists(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "key", []byte("v"), time.Minute)

	exists, err := c.Exists(ctx, "key")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v, want true, nil", exists, err)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	exists, err = c.Exists(ctx, "key")
	if err != nil || exists {
		t.Errorf("Exists() after delete = %v, %v, want false, nil", exists, err)
	}
}

func TestMemoryCache_SizeClear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)

	if size := c.Size(); size != 2 {
		t.Errorf("Size() = %d, want 2", size)
	}

	c.Clear()
	if size := c.Size(); size != 0 {
		t.Errorf("Size() after Clear = %d, want 0", size)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, "shared", []byte("value"), time.Minute)
				_, _ = c.Get(ctx, "shared")
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
