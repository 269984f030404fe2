package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"newsbot/types"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedMessageHandler(t *testing.T) {
	var processed []int
	h := &TypedMessageHandler[types.IngestEvent]{
		Validate: func(msg *types.IngestEvent) bool { return msg.Inserted > 0 },
		Process: func(ctx context.Context, msg *types.IngestEvent) error {
			if msg.Inserted == 13 {
				return errors.New("store unavailable")
			}
			processed = append(processed, msg.Inserted)
			return nil
		},
		AlwaysMark: true,
	}

	cases := []struct {
		name     string
		payload  string
		wantMark bool
		wantErr  bool
	}{
		{"valid", `{"inserted": 3}`, true, false},
		{"invalid json", `{not json`, true, false},
		{"fails validation", `{"inserted": 0}`, true, false},
		{"process error", `{"inserted": 13}`, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mark, err := h.HandleMessage(context.Background(), []byte(c.payload))
			assert.Equal(t, c.wantMark, mark)
			assert.Equal(t, c.wantErr, err != nil)
		})
	}
	assert.Equal(t, []int{3}, processed)
}

func TestProducerPublishJSON(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	result := types.PassResult{RunID: "run-1", Strategy: "lexical", Threshold: 1, Deleted: []string{"b"}, StartedAt: time.Unix(0, 0).UTC()}

	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got types.PassResult
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.RunID != "run-1" || len(got.Deleted) != 1 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewProducerWith(mock)
	require.NoError(t, p.PublishJSON(context.Background(), TopicDeduplicated, result.RunID, result))
	require.NoError(t, p.Close())
}

func TestProducerPublishFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWith(mock)
	err := p.PublishJSON(context.Background(), TopicIngested, "k", types.IngestEvent{Inserted: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewProducerWith(mocks.NewSyncProducer(t, nil)).PublishJSON(ctx, TopicIngested, "k", 1), context.Canceled)
}
