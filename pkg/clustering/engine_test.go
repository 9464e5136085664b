/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Tests for the clustering engine: convergence, partition and grammar
coverage of the result, threshold schedules, determinism, and orphan reduction.
*/

package clustering_test

import (
	"context"
	"io"
	"testing"

	"github.com/kleascm/protoinfer/pkg/clustering"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newEngine(t *testing.T, cfg core.ClusterConfig, opts ...clustering.Option) *clustering.Engine {
	t.Helper()
	opts = append([]clustering.Option{clustering.WithLogger(quietLogger())}, opts...)
	e, err := clustering.NewEngine(cfg, opts...)
	require.NoError(t, err)
	return e
}

func messages(payloads ...[]byte) []*core.Message {
	out := make([]*core.Message, len(payloads))
	for i, p := range payloads {
		out[i] = core.NewMessage(p)
	}
	return out
}

func mixedCorpus() []*core.Message {
	return messages(
		[]byte("GET /a.html HTTP/1.1"),
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x00},
		[]byte("GET /bb.html HTTP/1.1"),
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x02, 0x00},
		[]byte("GET /ccc.html HTTP/1.1"),
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x03, 0x00},
	)
}

func assertPartitionAndCoverage(t *testing.T, msgs []*core.Message, clusters []*core.Cluster) {
	t.Helper()
	assignments, err := core.Assignments(clusters)
	require.NoError(t, err)
	assert.Len(t, assignments, len(msgs))
	for _, m := range msgs {
		assert.Contains(t, assignments, m.ID())
	}
	for _, c := range clusters {
		_, mismatches := grammar.Segment(c)
		assert.Empty(t, mismatches, "cluster %s grammar %s", c.Name, grammar.Pattern(c.Fields))
		assert.NotEmpty(t, c.Fields)
	}
}

func TestEngineSeparatesFormats(t *testing.T) {
	msgs := mixedCorpus()
	e := newEngine(t, core.DefaultClusterConfig())

	clusters, err := e.Run(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assertPartitionAndCoverage(t, msgs, clusters)

	for _, c := range clusters {
		require.Equal(t, 3, c.Size())
		text := c.Members[0].Payload()[0] == 'G'
		for _, m := range c.Members {
			assert.Equal(t, text, m.Payload()[0] == 'G', "cluster %s mixes formats", c.Name)
		}
	}

	stats := e.Stats()
	assert.Equal(t, int64(4), stats.Merges)
	assert.Greater(t, stats.PairEvaluations, int64(0))
	assert.Zero(t, stats.Mismatches)
}

func TestEngineHTTPGrammar(t *testing.T) {
	msgs := messages(
		[]byte("GET /a.html HTTP/1.1"),
		[]byte("GET /bb.html HTTP/1.1"),
	)
	e := newEngine(t, core.DefaultClusterConfig())

	clusters, err := e.Run(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	c := clusters[0]

	assert.Equal(t, "0-1", c.Name)
	require.Len(t, c.Fields, 3)
	assert.Equal(t, []byte("GET /"), c.Fields[0].Token.Literal)
	assert.True(t, c.Fields[1].Token.IsVariable())
	assert.Equal(t, []byte(".html HTTP/1.1"), c.Fields[2].Token.Literal)
	assert.Equal(t, core.RenderASCII, c.Fields[1].Type)
}

func TestEngineTrivialInputs(t *testing.T) {
	e := newEngine(t, core.DefaultClusterConfig())

	clusters, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, clusters)

	single := messages([]byte("hello"))
	clusters, err = e.Run(context.Background(), single)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Fields, 1)
	assert.Equal(t, core.Literal([]byte("hello")), clusters[0].Fields[0].Token)
	assert.Equal(t, 100.0, clusters[0].Score)
}

func TestEngineSingletonStability(t *testing.T) {
	cfg := core.DefaultClusterConfig()
	cfg.EquivalenceThreshold = 100
	msgs := messages([]byte("alpha"), []byte("bravo"), []byte("charlie"))

	clusters, err := newEngine(t, cfg).Run(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, clusters, 3)
	for i, c := range clusters {
		assert.True(t, c.IsSingleton())
		assert.Same(t, msgs[i], c.Members[0])
		require.Len(t, c.Fields, 1)
		assert.Equal(t, msgs[i].Payload(), c.Fields[0].Token.Literal)
		assert.Equal(t, 100.0, c.Score)
	}
}

func TestEngineMonotonicThreshold(t *testing.T) {
	for _, schedule := range []core.ThresholdSchedule{core.ScheduleConstant, core.ScheduleLinear, core.ScheduleLegacy} {
		t.Run(string(schedule), func(t *testing.T) {
			cfg := core.DefaultClusterConfig()
			cfg.EquivalenceThreshold = 40
			cfg.ThresholdSchedule = schedule
			cfg.ThresholdStep = 5
			rec := &core.RecordingReporter{}

			msgs := mixedCorpus()
			clusters, err := newEngine(t, cfg, clustering.WithReporter(rec)).Run(context.Background(), msgs)
			require.NoError(t, err)
			assertPartitionAndCoverage(t, msgs, clusters)

			for _, m := range rec.Merges {
				assert.GreaterOrEqual(t, m.Score, m.Threshold)
				assert.Equal(t, cfg.ThresholdAt(m.Iteration), m.Threshold)
			}
			require.NotNil(t, rec.Final)
			assert.Equal(t, int64(len(rec.Merges)), rec.Final.Merges)
		})
	}
}

func TestEngineMaxIterations(t *testing.T) {
	cfg := core.DefaultClusterConfig()
	cfg.MaxIterations = 1

	clusters, err := newEngine(t, cfg).Run(context.Background(), mixedCorpus())
	require.NoError(t, err)
	assert.Len(t, clusters, 5)
}

func TestEngineDeterministicAcrossWorkers(t *testing.T) {
	msgs := mixedCorpus()
	var reference [][]string
	for _, workers := range []int{1, 2, 8} {
		cfg := core.DefaultClusterConfig()
		cfg.Workers = workers
		clusters, err := newEngine(t, cfg).Run(context.Background(), msgs)
		require.NoError(t, err)

		var got [][]string
		for _, c := range clusters {
			got = append(got, append([]string{c.Name, grammar.Pattern(c.Fields)}, c.MemberIDs()...))
		}
		if reference == nil {
			reference = got
			continue
		}
		assert.Equal(t, reference, got, "workers=%d", workers)
	}
}

func TestEngineOrphanReduction(t *testing.T) {
	payloads := [][]byte{
		[]byte("AAAAXBBBB"),
		[]byte("AAAAYBBBB"),
		[]byte("AAAAZZBBBB"),
		{0x00, 0x01},
	}

	cfg := core.DefaultClusterConfig()
	cfg.MaxIterations = 1

	msgs := messages(payloads...)
	plain, err := newEngine(t, cfg).Run(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, plain, 3)

	cfg.OrphanReduction = true
	e := newEngine(t, cfg)
	reduced, err := e.Run(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, reduced, 2)
	assertPartitionAndCoverage(t, msgs, reduced)

	assert.Equal(t, 3, reduced[0].Size())
	assert.Equal(t, []string{msgs[0].ID(), msgs[1].ID(), msgs[2].ID()}, reduced[0].MemberIDs())
	assert.True(t, reduced[1].IsSingleton(), "an orphan that lowers every score stays alone")
	assert.Equal(t, int64(1), e.Stats().OrphansFolded)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := core.DefaultClusterConfig()
	cfg.EquivalenceThreshold = 150
	_, err := clustering.NewEngine(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t, core.DefaultClusterConfig()).Run(ctx, mixedCorpus())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineReductionFactors(t *testing.T) {
	a := core.NewMessage([]byte("garbage1:HELLO:world"))
	b := core.NewMessage([]byte("xx:HELLO:there"))
	require.NoError(t, a.SetReduction(40, 0))
	require.NoError(t, b.SetReduction(20, 0))
	msgs := []*core.Message{a, b}

	cfg := core.DefaultClusterConfig()
	cfg.EquivalenceThreshold = 0
	clusters, err := newEngine(t, cfg).Run(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assertPartitionAndCoverage(t, msgs, clusters)
	assert.True(t, clusters[0].Fields[0].Token.IsVariable())
}
