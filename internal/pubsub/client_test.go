package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	MatchID string    `msgpack:"match_id"`
	TeamA   []string  `msgpack:"team_a"`
	At      time.Time `msgpack:"at"`
}

func TestEncodeDecode(t *testing.T) {
	in := payload{MatchID: "m1", TeamA: []string{"a", "b"}, At: time.Unix(1700000000, 0).UTC()}

	data, err := Encode(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, in.MatchID, out.MatchID)
	assert.Equal(t, in.TeamA, out.TeamA)
	assert.True(t, in.At.Equal(out.At))
}

func TestDecodeGarbage(t *testing.T) {
	var out payload
	assert.Error(t, Decode([]byte{0xc1}, &out))
}
