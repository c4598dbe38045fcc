package conversation

import (
	"math/rand"
	"testing"

	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/testutil/fixtures"
	"github.com/OTFiles/CosmoSynthAI/testutil/mocks"
	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TurnInterval = 0
	cfg.IdleBackoff = 0
	cfg.SnapshotEvery = 0
	return cfg
}

func newTestConversation(t *testing.T, store *topology.Store, completer *mocks.MockCompleter, opts ...Option) *Conversation {
	t.Helper()
	if completer == nil {
		completer = mocks.NewMockCompleter()
	}
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return New(store, completer, testConfig(), nil, opts...)
}

func trio(t *testing.T, settings topology.Settings) *topology.Store {
	t.Helper()
	store, err := topology.NewStore(fixtures.TrioAgents(), settings)
	require.NoError(t, err)
	return store
}

func lastEntry(c *Conversation, agent string) types.Message {
	msgs := c.Transcript(agent)
	return msgs[len(msgs)-1]
}
