package lobby_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horup/hostess/instance"
	"github.com/horup/hostess/lobby"
)

type noopLogic struct{}

func (noopLogic) Init() instance.Config        { return instance.Config{TickRate: 30, MaxPlayers: 4} }
func (noopLogic) Tick(ctx *instance.Ctx)       {}

func newLogic() instance.Logic { return noopLogic{} }

func TestNewInstanceIsRetrievable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := lobby.New(newLogic, nil, nil, nil)
	creator := uuid.New()
	id := l.NewInstance(ctx, creator)

	inst, ok := l.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, inst.ID())
	assert.Equal(t, creator, inst.Info().Creator)
	assert.Equal(t, 1, l.Count())
}

func TestGetUnknownIDReturnsFalse(t *testing.T) {
	l := lobby.New(newLogic, nil, nil, nil)
	_, ok := l.Get(uuid.New())
	assert.False(t, ok)
}

func TestSnapshotPreservesCreationOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := lobby.New(newLogic, nil, nil, nil)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, l.NewInstance(ctx, uuid.New()))
	}

	snap := l.Snapshot()
	require.Len(t, snap, 5)
	for i, info := range snap {
		assert.Equal(t, ids[i], info.ID)
	}
	assert.Equal(t, 5, l.Count())
}
