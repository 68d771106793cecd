//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
)

const testTopic = "buscollege.audit.test"

func startBroker(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "redpandadata/redpanda:v24.2.2")
	require.NoError(t, err, "start redpanda container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err, "get seed broker")

	admin, err := kgo.NewClient(kgo.SeedBrokers(broker))
	require.NoError(t, err)
	defer admin.Close()
	_, err = kadm.NewClient(admin).CreateTopic(ctx, 1, 1, nil, testTopic)
	require.NoError(t, err, "create audit topic")

	return broker
}

func TestKafkaSinkRoundTrip(t *testing.T) {
	broker := startBroker(t)
	ctx := t.Context()

	sink, err := NewKafkaSink([]string{broker}, testTopic)
	require.NoError(t, err)
	defer sink.Close()

	event := audit.Event{
		Action:         string(audit.EventRiderSubscribed),
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
		RiderID:        "r1",
		BusID:          "bus-1",
		SubscriptionID: "sub-1",
	}
	require.NoError(t, sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, []byte("r1"), records[0].Key, "events are keyed by rider")

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event, got)
}
