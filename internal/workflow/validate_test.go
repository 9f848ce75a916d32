package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func st(name string, tf int, needs ...string) *Stage {
	return &Stage{Name: name, Timeframe: tf, Needs: needs}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		stages []*Stage
		want   error
	}{
		{"ok", []*Stage{st("a", Independent), st("b", 1, "a"), st("c", 1, "b")}, nil},
		{"duplicate", []*Stage{st("a", 1), st("a", 1)}, ErrDuplicateStage},
		{"dangling", []*Stage{st("a", 1, "ghost")}, ErrDanglingDependency},
		{"crossing", []*Stage{st("a", 1), st("b", 2, "a")}, ErrTimeframeCrossing},
		{"cycle", []*Stage{st("a", 1, "c"), st("b", 1, "a"), st("c", 1, "b")}, ErrCycle},
		{"self loop", []*Stage{st("a", 1, "a")}, ErrCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Workflow{Stages: tt.stages})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidate_CycleWitnessIsDeterministic(t *testing.T) {
	w := &Workflow{Stages: []*Stage{
		st("root", 1),
		st("a", 1, "root", "c"),
		st("b", 1, "a"),
		st("c", 1, "b"),
		st("tail", 1, "c"),
	}}
	err := Validate(w)
	require.Error(t, err)
	assert.EqualError(t, err, "workflow: dependency cycle: a -> c -> b -> a")
}

func TestTopoOrder(t *testing.T) {
	w := &Workflow{Stages: []*Stage{
		st("aod", 1, "reco", "sim"),
		st("sim", 1),
		st("reco", 1, "sim"),
		st("bkg", Independent),
	}}
	order, err := TopoOrder(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"sim", "reco", "aod", "bkg"}, order)
}

func TestContextAdd(t *testing.T) {
	c := NewContext()
	a := c.NewStage("a", StageOpts{})
	require.NoError(t, c.Add(a))
	assert.Equal(t, Independent, a.Timeframe)
	assert.Equal(t, "./", a.Cwd)
	assert.Equal(t, 1, c.Session())

	b := c.NewStage("b", StageOpts{Needs: []string{"a", "a"}, Timeframe: 2})
	assert.Equal(t, []string{"a"}, b.Needs)
	require.NoError(t, c.Add(b))

	assert.ErrorIs(t, c.Add(c.NewStage("a", StageOpts{})), ErrDuplicateStage)
	assert.ErrorIs(t, c.Add(c.NewStage("x", StageOpts{Needs: []string{"later"}})), ErrDanglingDependency)
	assert.Equal(t, 4, c.Session())
	assert.Equal(t, []string{"a", "b"}, names(c.Stages()))
	assert.Same(t, b, c.Lookup("b"))
}
