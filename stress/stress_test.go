package stress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/multicast/multicast"
	"github.com/tailored-agentic-units/multicast/observability"
	"github.com/tailored-agentic-units/multicast/stress"
)

func TestRun(t *testing.T) {
	cfg := stress.Config{
		Mutators:   4,
		Invokers:   4,
		Observers:  16,
		Iterations: 300,
		Seed:       42,
	}

	report, err := stress.Run(context.Background(), &cfg)
	require.NoError(t, err)

	require.NotEmpty(t, report.RunID)
	require.Zero(t, report.Violations)
	require.EqualValues(t, 4*300, report.Mutations)
	require.EqualValues(t, 4*300, report.Invocations)
	require.Equal(t, 4, report.Released, "a quarter of the pool is released by default")
	require.Len(t, report.ReleasedIDs, 4)
	require.EqualValues(t, 42, report.Seed)
	require.LessOrEqual(t, report.Alive, 16-report.Released+1, "the main slot may repeat an additional observer")
}

func TestRun_InvalidConfig(t *testing.T) {
	report, err := stress.Run(context.Background(), &stress.Config{ReleaseRatio: ratioOf(1.5)})
	require.ErrorContains(t, err, "invalid stress config")
	require.Nil(t, report)
}

func TestRun_Reproducible(t *testing.T) {
	cfg := stress.Config{Mutators: 2, Invokers: 1, Observers: 32, Iterations: 40}

	first, err := stress.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.NotZero(t, first.Seed, "a zero seed is replaced by a random one")
	require.Len(t, first.ReleasedIDs, 8)

	cfg.Seed = first.Seed
	second, err := stress.Run(context.Background(), &cfg)
	require.NoError(t, err)

	require.Equal(t, first.ReleasedIDs, second.ReleasedIDs, "the same seed releases the same observers")
	require.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_SeedSelectsReleasedObservers(t *testing.T) {
	run := func(seed uint64) []int {
		report, err := stress.Run(context.Background(), &stress.Config{
			Mutators: 1, Invokers: 1, Observers: 32, Iterations: 40, Seed: seed,
		})
		require.NoError(t, err)
		return report.ReleasedIDs
	}

	require.NotEqual(t, run(1), run(2))
}

func TestRun_ZeroReleaseRatio(t *testing.T) {
	harness := &observability.Recorder{}

	report, err := stress.Run(context.Background(),
		&stress.Config{Mutators: 1, Invokers: 1, Observers: 8, Iterations: 20, Seed: 3, ReleaseRatio: ratioOf(0)},
		stress.WithObserver(harness),
	)
	require.NoError(t, err)

	require.Zero(t, report.Released)
	require.Empty(t, report.ReleasedIDs)
	require.Zero(t, harness.Count(stress.EventRelease))
}

func TestRun_Events(t *testing.T) {
	harness := &observability.Recorder{}
	registryEvents := &observability.Recorder{}
	observability.RegisterObserver("stress-test-registry", registryEvents)

	cfg := stress.Config{
		Mutators:   2,
		Invokers:   2,
		Observers:  8,
		Iterations: 50,
		Seed:       7,
		Registry:   multicast.Config{Name: "stressed", Observer: "stress-test-registry"},
	}

	_, err := stress.Run(context.Background(), &cfg, stress.WithObserver(harness))
	require.NoError(t, err)

	require.Equal(t, 1, harness.Count(stress.EventRunStart))
	require.Equal(t, 1, harness.Count(stress.EventRelease))
	require.Equal(t, 1, harness.Count(stress.EventRunComplete))
	require.Zero(t, harness.Count(stress.EventViolation))

	require.Equal(t, 100, registryEvents.Count(multicast.EventInvoke))
	for _, e := range registryEvents.Events() {
		require.Equal(t, "stressed", e.Source)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := stress.Run(ctx, &stress.Config{Iterations: 1000})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	require.Zero(t, report.Invocations)
}

func TestRun_UnknownRegistryObserver(t *testing.T) {
	_, err := stress.Run(context.Background(), &stress.Config{
		Registry: multicast.Config{Observer: "missing"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestRun_MultipleObservers(t *testing.T) {
	first := &observability.Recorder{}
	second := &observability.Recorder{}

	_, err := stress.Run(context.Background(),
		&stress.Config{Mutators: 1, Invokers: 1, Observers: 4, Iterations: 10, Seed: 5},
		stress.WithObserver(first),
		stress.WithObserver(observability.NoOpObserver{}),
		stress.WithObserver(second),
	)
	require.NoError(t, err)

	require.Equal(t, 1, first.Count(stress.EventRunComplete))
	require.Equal(t, 1, second.Count(stress.EventRunComplete))
	require.Equal(t, len(first.Events()), len(second.Events()))
}
