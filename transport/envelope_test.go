package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remindctl/remind/model"
)

func TestEffectRoundTrip(t *testing.T) {
	cases := []model.Effect{
		model.LoadConfig{Discovery: model.DefaultConfigDiscovery, TagID: 1},
		model.ReadEnvVar{Name: "FOO", TagID: 2},
		model.StartTimer{Duration: 10 * time.Minute, TagID: 3},
	}
	for _, eff := range cases {
		encoded, err := EncodeEffect(eff)
		require.NoError(t, err)
		decoded, err := DecodeEffect(encoded)
		require.NoError(t, err)
		require.Equal(t, eff.Tag(), decoded.Tag())
	}
}

func TestEventRoundTrip(t *testing.T) {
	val := "hello"
	cases := []model.Event{
		model.ConfigLoaded{TagID: 1, Path: "x", Contents: "y"},
		model.EnvVarLoaded{TagID: 2, Name: "FOO", Value: &val},
		model.TimerFired{TagID: 3},
	}
	for _, evt := range cases {
		encoded, err := EncodeEvent(evt)
		require.NoError(t, err)
		_, err = DecodeEvent(encoded)
		require.NoError(t, err)
	}
}

func TestDecodeEffectUnknownKind(t *testing.T) {
	_, err := DecodeEffect([]byte(`{"kind":"bogus","data":{}}`))
	require.Error(t, err)
}
