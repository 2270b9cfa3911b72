package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker(zap.NewNop())

	first, cancelFirst := b.Subscribe(1)
	second, cancelSecond := b.Subscribe(1)
	defer cancelFirst()
	defer cancelSecond()

	b.Publish(Change{Schema: "pedido", ID: "1", Action: "created", At: time.Now()})

	for _, ch := range []<-chan Change{first, second} {
		select {
		case change := <-ch:
			assert.Equal(t, "pedido", change.Schema)
			assert.Equal(t, "created", change.Action)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the change")
		}
	}
}

func TestBroker_PublishNeverBlocks(t *testing.T) {
	b := NewBroker(zap.NewNop())

	ch, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Change{Schema: "despesa", Action: "created"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffered change is still there.
	require.Len(t, ch, 1)
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := NewBroker(zap.NewNop())

	ch, cancel := b.Subscribe(0)
	cancel()
	cancel() // safe to call twice

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after cancel reaches nobody and must not panic.
	b.Publish(Change{Schema: "venda", Action: "deleted"})
}
