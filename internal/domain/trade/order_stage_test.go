package trade

import (
	"errors"
	"testing"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageCodes(stages []OrderStage) []string {
	codes := make([]string, len(stages))
	for i, s := range stages {
		codes[i] = s.Code
	}
	return codes
}

func newTestPipeline(t *testing.T, codes ...string) *StagePipeline {
	stages := make([]OrderStage, 0, len(codes))
	for _, c := range codes {
		s, err := NewOrderStage(c, c)
		require.NoError(t, err)
		stages = append(stages, *s)
	}
	p, err := NewStagePipeline(stages)
	require.NoError(t, err)
	return p
}

func TestStagePipeline_ReadyToShipAlwaysLast(t *testing.T) {
	empty, err := NewStagePipeline(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ready_to_ship"}, stageCodes(empty.Stages()))

	p := newTestPipeline(t, "picking", "packing")
	stages := p.Stages()
	assert.Equal(t, []string{"picking", "packing", "ready_to_ship"}, stageCodes(stages))
	assert.True(t, stages[2].Reserved)
	assert.Equal(t, 2, stages[2].Position)
}

func TestStagePipeline_IgnoresStoredReservedStage(t *testing.T) {
	p, err := NewStagePipeline([]OrderStage{
		{Code: "ready_to_ship", Name: "Ready to Ship"},
		{Code: "picking", Name: "Picking"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"picking", "ready_to_ship"}, stageCodes(p.Stages()))
	assert.Len(t, p.CustomStages(), 1)
}

func TestStagePipeline_CannotRemoveReserved(t *testing.T) {
	p := newTestPipeline(t, "picking")

	err := p.RemoveStage("ready_to_ship")
	assert.True(t, errors.Is(err, shared.ErrReservedStage))
	err = p.RemoveStage(" Ready_To_Ship ")
	assert.True(t, errors.Is(err, shared.ErrReservedStage))

	require.NoError(t, p.RemoveStage("picking"))
	assert.Equal(t, []string{"ready_to_ship"}, stageCodes(p.Stages()))

	err = p.RemoveStage("picking")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestStagePipeline_CannotAddReserved(t *testing.T) {
	_, err := NewOrderStage("ready_to_ship", "Again")
	assert.True(t, errors.Is(err, shared.ErrReservedStage))

	p := newTestPipeline(t)
	err = p.AddStage(StageReadyToShip)
	assert.True(t, errors.Is(err, shared.ErrReservedStage))

	s, err := NewOrderStage("qc", "Quality check")
	require.NoError(t, err)
	require.NoError(t, p.AddStage(*s))
	err = p.AddStage(*s)
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
}

func TestStagePipeline_Reorder(t *testing.T) {
	p := newTestPipeline(t, "picking", "packing", "qc")

	require.NoError(t, p.Reorder([]string{"qc", "picking", "packing"}))
	assert.Equal(t, []string{"qc", "picking", "packing", "ready_to_ship"}, stageCodes(p.Stages()))

	require.NoError(t, p.Reorder([]string{"picking", "packing", "qc", "ready_to_ship"}))
	assert.Equal(t, []string{"picking", "packing", "qc", "ready_to_ship"}, stageCodes(p.Stages()))

	err := p.Reorder([]string{"ready_to_ship", "picking", "packing", "qc"})
	assert.True(t, errors.Is(err, shared.ErrReservedStage))

	err = p.Reorder([]string{"picking", "packing"})
	require.Error(t, err)

	err = p.Reorder([]string{"picking", "picking", "qc"})
	require.Error(t, err)

	assert.Equal(t, []string{"picking", "packing", "qc", "ready_to_ship"}, stageCodes(p.Stages()))
}

func TestNewOrderStage_Validation(t *testing.T) {
	tests := []struct {
		code    string
		name    string
		wantErr bool
	}{
		{"picking", "Picking", false},
		{" Packing ", "Packing", false},
		{"1st", "First", true},
		{"has space", "x", true},
		{"ok", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := NewOrderStage(tt.code, tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
