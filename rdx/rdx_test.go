package rdx

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"snap2sell/db"
)

func TestKeyLayout(t *testing.T) {
	s := New(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", nil)
	defer s.Close()
	if got := s.key("cart"); got != "snap2sell:state:cart" {
		t.Fatalf("key = %q", got)
	}
	if got := s.channel(); got != "snap2sell:state-events" {
		t.Fatalf("channel = %q", got)
	}
}

func TestAnnounceFailureIsLogged(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	conn := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := New(conn, "", log)
	defer s.Close()

	s.announce(context.Background(), "cart")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("failed publish was not logged")
	}
	if entry.Level != logrus.WarnLevel || entry.Data["key"] != "cart" {
		t.Fatalf("entry = %v %v", entry.Level, entry.Data)
	}
}

// Needs a live server: REDIS_ADDR=localhost:6379 go test ./rdx
func TestStoreAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	a, err := Connect(ctx, addr, "", 0, "snap2sell-test", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Connect(ctx, addr, "", 0, "snap2sell-test", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := a.Watch(wctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Set(ctx, "cart", "[]"); err != nil {
		t.Fatal(err)
	}
	if v, err := a.Get(ctx, "cart"); err != nil || v != "[]" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	select {
	case key := <-events:
		if key != "cart" {
			t.Fatalf("event key = %q", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no state event")
	}

	if err := b.Delete(ctx, "cart"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Get(ctx, "cart"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("after delete err = %v", err)
	}
}
