package neighborhood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvaran/tabuforge/pkg/model"
)

func TestUserDefinedGeneratorDelegatesToFunc(t *testing.T) {
	called := false
	g := UserDefinedGenerator{
		GenName: "qap_swap2",
		Fn: func(c *model.Container) []*model.Move {
			called = true
			return []*model.Move{model.NewMove(model.MoveUserDefined, model.Alteration{Var: 0, Value: 1})}
		},
	}
	assert.Equal(t, "qap_swap2", g.Name())

	c := model.NewContainer("empty")
	moves := g.Generate(c)
	require.Len(t, moves, 1)
	assert.True(t, called)
	assert.Equal(t, model.MoveUserDefined, moves[0].Sense)
}

func TestUserDefinedGeneratorDefaultsNameAndHandlesNilFunc(t *testing.T) {
	g := UserDefinedGenerator{}
	assert.Equal(t, "user_defined", g.Name())
	assert.Nil(t, g.Generate(model.NewContainer("empty")))
}
