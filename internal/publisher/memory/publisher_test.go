package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "topic-a", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "topic-b", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "topic-a", msgs[0].Topic)
	require.Equal(t, "topic-b", msgs[1].Topic)
	require.JSONEq(t, `{"k":"v"}`, string(msgs[0].Data))

	msgs[0].Topic = "modified"
	require.Equal(t, "topic-a", pub.Messages()[0].Topic, "Messages must return a copy")
	require.Equal(t, 2, pub.Len())
}

func TestPublisherCreatedDecodesEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	evt := artifact.Created{
		ID:          "0190a3b4-0000-7000-8000-000000000001",
		Src:         "/images/0190a3b4-0000-7000-8000-000000000001.jpg",
		ContentType: artifact.ContentTypeJPEG,
		Bytes:       42,
		SourceHash:  "deadbeef",
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
	_, err := pub.Publish(context.Background(), "bitcrush-created", evt)
	require.NoError(t, err)

	got, err := pub.Created()
	require.NoError(t, err)
	require.Equal(t, []artifact.Created{evt}, got)
}

func TestPublisherRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "topic", make(chan int))
	require.ErrorContains(t, err, "marshal payload")
	require.Zero(t, pub.Len())
}
