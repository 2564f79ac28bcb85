package message

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Command
		wantErr error
	}{
		{"right", `{"message":"led_r"}`, CommandLEDRight, nil},
		{"left", `{"message": "led_l"}`, CommandLEDLeft, nil},
		{"ping", `{"message":"pico","room_id":"ws"}`, CommandPing, nil},
		{"unknown", `{"message":"led_x"}`, "", ErrUnknownCommand},
		{"missing key", `{"type":"led_r"}`, "", ErrUnknownCommand},
		{"not json", `led_r`, "", ErrMalformed},
		{"wrong type", `{"message":5}`, "", ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tc.payload))
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				var pe *ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, tc.payload, pe.Payload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeIsCompact(t *testing.T) {
	assert.Equal(t, `{"message":"running"}`, string(Encode(Running)))
	assert.Equal(t, `{"message":"miss"}`, string(Encode(Miss)))
}

func TestReaction(t *testing.T) {
	assert.Equal(t, "80", Reaction(80*time.Millisecond))
	assert.Equal(t, "0", Reaction(999*time.Microsecond))
	assert.Equal(t, "10000", Reaction(10*time.Second))
}

func TestIsResult(t *testing.T) {
	assert.True(t, IsResult("miss"))
	assert.True(t, IsResult("123"))
	assert.False(t, IsResult(""))
	assert.False(t, IsResult("led_r"))
	assert.False(t, IsResult("12a"))
}
