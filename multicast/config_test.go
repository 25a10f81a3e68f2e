package multicast_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/multicast/multicast"
	"github.com/tailored-agentic-units/multicast/observability"
)

func TestDefaultConfig(t *testing.T) {
	cfg := multicast.DefaultConfig()

	require.Equal(t, "multicast", cfg.Name)
	require.Equal(t, "noop", cfg.Observer)
}

func TestConfig_Merge(t *testing.T) {
	tests := []struct {
		name   string
		source multicast.Config
		want   multicast.Config
	}{
		{
			name:   "zero values preserve defaults",
			source: multicast.Config{},
			want:   multicast.DefaultConfig(),
		},
		{
			name:   "name overrides",
			source: multicast.Config{Name: "delegates"},
			want:   multicast.Config{Name: "delegates", Observer: "noop"},
		},
		{
			name:   "observer overrides",
			source: multicast.Config{Observer: "slog"},
			want:   multicast.Config{Name: "multicast", Observer: "slog"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := multicast.DefaultConfig()
			cfg.Merge(&tt.source)
			require.Equal(t, tt.want, cfg)
		})
	}
}

func TestConfig_JSON(t *testing.T) {
	var cfg multicast.Config
	require.NoError(t, json.Unmarshal([]byte(`{"name": "player", "observer": "slog"}`), &cfg))

	require.Equal(t, "player", cfg.Name)
	require.Equal(t, "slog", cfg.Observer)
}

func TestNewFromConfig(t *testing.T) {
	rec := &observability.Recorder{}
	observability.RegisterObserver("config-test", rec)

	r, err := multicast.NewFromConfig[dispatcher](&multicast.Config{Name: "player", Observer: "config-test"})
	require.NoError(t, err)
	require.Equal(t, "player", r.Name())

	r.Add(newListener(0, nil))
	require.Equal(t, 1, rec.Count(multicast.EventAdditionalAdd))
}

func TestNewFromConfig_NilUsesDefaults(t *testing.T) {
	r, err := multicast.NewFromConfig[dispatcher](nil)
	require.NoError(t, err)
	require.Equal(t, "multicast", r.Name())
}

func TestNewFromConfig_OptionsOverride(t *testing.T) {
	r, err := multicast.NewFromConfig[dispatcher](&multicast.Config{Name: "from-config"}, multicast.WithName("from-option"))
	require.NoError(t, err)
	require.Equal(t, "from-option", r.Name())
}

func TestNewFromConfig_UnknownObserver(t *testing.T) {
	r, err := multicast.NewFromConfig[dispatcher](&multicast.Config{Observer: "does-not-exist"})
	require.Error(t, err)
	require.Nil(t, r)
	require.Contains(t, err.Error(), "does-not-exist")
}
