package services

import (
	"context"
	"testing"
	"time"

	"github.com/unicatolica/registro-huellas/internal/models"
)

func TestFeedDeliversPublishedAccess(t *testing.T) {
	t.Parallel()
	mr, client := newRedis(t)
	feed := NewFeed(client, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	events, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	eventually(t, func() bool { return mr.PubSubNumSub(FeedChannel)[FeedChannel] == 1 })

	ev := AccessEvent{Tipo: models.AccessEntrada, Acceso: models.Acceso{Carnet: "A123", Fecha: "2024-01-10"}}
	if err := feed.PublishAccess(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got.Tipo != models.AccessEntrada || got.Acceso.Carnet != "A123" || got.Timestamp.IsZero() {
			t.Fatalf("event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFeedUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	_, client := newRedis(t)
	feed := NewFeed(client, discardLogger())

	events, unsubscribe := feed.Subscribe()
	unsubscribe()
	unsubscribe()
	if _, ok := <-events; ok {
		t.Fatal("channel still open")
	}
	feed.fanOut(AccessEvent{Tipo: models.AccessSalida})
}
