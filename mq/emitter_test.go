package mq

import (
	"context"
	"testing"
)

func TestBusDelivery(t *testing.T) {
	bus := NewBus(nil)
	var named, all []string
	bus.Subscribe("cart.changed", func(_ context.Context, ev Event) { named = append(named, ev.Name) })
	bus.Subscribe("", func(_ context.Context, ev Event) { all = append(all, ev.Name) })

	bus.Emit(context.Background(), "cart.changed", 3)
	bus.Emit(context.Background(), "session.logged-out", nil)

	if len(named) != 1 || named[0] != "cart.changed" {
		t.Fatalf("named = %v", named)
	}
	if len(all) != 2 {
		t.Fatalf("wildcard got %v", all)
	}
}

func TestNilBusEmit(t *testing.T) {
	var bus *Bus
	bus.Emit(context.Background(), "anything", nil)
}
