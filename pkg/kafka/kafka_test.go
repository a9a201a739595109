package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Query string `json:"query"`
	Hits  int    `json:"hits"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msgs, err := encodeEvents([]Event{
		{Key: "q1", Type: "search", Value: payload{Query: "fox", Hits: 2}},
		{Key: "q2", Value: payload{Query: "dog"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	first := decodeMessage(msgs[0])
	assert.Equal(t, "search", first.Type)
	assert.Equal(t, []byte("q1"), first.Key)
	got, err := DecodeJSON[payload](first.Value)
	require.NoError(t, err)
	assert.Equal(t, payload{Query: "fox", Hits: 2}, got)

	assert.Empty(t, decodeMessage(msgs[1]).Type)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encodeEvents([]Event{{Type: "bad", Value: make(chan int)}})
	assert.ErrorContains(t, err, "marshaling bad event")
}

func TestDecodeJSONError(t *testing.T) {
	_, err := DecodeJSON[payload]([]byte("{"))
	assert.ErrorContains(t, err, "decoding kafka message")
}
