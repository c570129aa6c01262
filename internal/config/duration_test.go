package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "seconds", input: `"30s"`, expected: 30 * time.Second},
		{name: "minutes", input: `"5m"`, expected: 5 * time.Minute},
		{name: "compound", input: `"1h30m"`, expected: 90 * time.Minute},
		{name: "milliseconds", input: `"250ms"`, expected: 250 * time.Millisecond},
		{name: "empty string", input: `""`, expected: 0},
		{name: "invalid", input: `"soon"`, wantErr: true},
		{name: "bare number", input: `30`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := yaml.Unmarshal([]byte(tt.input), &d)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration())
		})
	}
}

func TestDuration_MarshalYAML(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	orig := Duration(45 * time.Second)

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, `"45s"`, string(data))

	var decoded Duration
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestDuration_UnmarshalJSON_Null(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.Equal(t, time.Duration(0), d.Duration())
}
