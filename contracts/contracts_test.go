package contracts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chronovm/chronovm/contracts"
)

func TestSnapshotHashIsDeterministic(t *testing.T) {
	rec := contracts.SnapshotRecord{SourceCode: "x = 1", CompilerVersion: "v1", ExecutionHash: "abc", MicroIndex: 3}
	h1 := contracts.SnapshotHash(rec, map[string]string{"b": "2", "a": "1"}, nil)
	h2 := contracts.SnapshotHash(rec, map[string]string{"a": "1", "b": "2"}, nil)
	assert.Equal(t, h1, h2, "map key order must not affect the hash")
	assert.Len(t, h1, 64)
}

func TestSnapshotHashChangesWithInput(t *testing.T) {
	rec := contracts.SnapshotRecord{SourceCode: "x = 1", CompilerVersion: "v1", ExecutionHash: "abc", MicroIndex: 3}
	h1 := contracts.SnapshotHash(rec, nil, nil)
	rec.MicroIndex = 4
	h2 := contracts.SnapshotHash(rec, nil, nil)
	assert.NotEqual(t, h1, h2)
}

func TestTemplateHash(t *testing.T) {
	tmpl := contracts.Template{PanelModes: map[string]string{"left": "trace"}, LockedPanels: []string{"left"}, LayoutVersion: 2, PreviousHash: "xyz"}
	assert.Len(t, contracts.TemplateHash(tmpl), 64)
}

func TestClassifyHint(t *testing.T) {
	assert.Equal(t, contracts.HintStep, contracts.ClassifyHint(1))
	assert.Equal(t, contracts.HintJump, contracts.ClassifyHint(10))
	assert.Equal(t, contracts.HintSnap, contracts.ClassifyHint(11))
}

func TestSeqGate(t *testing.T) {
	g := contracts.NewSeqGate()
	assert.Equal(t, contracts.DecisionApply, g.Observe(contracts.SyncMessage{SequenceNumber: 1}))
	assert.Equal(t, contracts.DecisionDrop, g.Observe(contracts.SyncMessage{SequenceNumber: 1}))
	assert.Equal(t, contracts.DecisionResync, g.Observe(contracts.SyncMessage{SequenceNumber: 10}))
}

func TestRequestDedupEvictsOldest(t *testing.T) {
	d := contracts.NewRequestDedupWithCapacity(2)
	assert.False(t, d.SeenBefore("a"))
	assert.False(t, d.SeenBefore("b"))
	assert.True(t, d.SeenBefore("a"))
	assert.False(t, d.SeenBefore("c")) // evicts "a"
	assert.False(t, d.SeenBefore("a")) // "a" was evicted, so it's new again
}
