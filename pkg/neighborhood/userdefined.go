package neighborhood

import "github.com/katalvaran/tabuforge/pkg/model"

// UserDefinedFunc is an externally registered move proposal function, for
// bespoke problem structure the generic generators above cannot see (e.g.
// QAP swap-2/swap-3).
type UserDefinedFunc func(c *model.Container) []*model.Move

// UserDefinedGenerator wraps a UserDefinedFunc as a Generator.
type UserDefinedGenerator struct {
	Fn      UserDefinedFunc
	GenName string
}

func (g UserDefinedGenerator) Name() string {
	if g.GenName == "" {
		return "user_defined"
	}
	return g.GenName
}

func (g UserDefinedGenerator) Generate(c *model.Container) []*model.Move {
	if g.Fn == nil {
		return nil
	}
	return g.Fn(c)
}
