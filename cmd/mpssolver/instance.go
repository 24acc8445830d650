package main

import (
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/solution"
)

// instanceTerm is one coefficient entry in an exported expression.
type instanceTerm struct {
	Variable string  `json:"variable"`
	Coef     float64 `json:"coefficient"`
}

// instanceVariable mirrors one decoded MPS column.
type instanceVariable struct {
	Name  string `json:"name"`
	Lower int    `json:"lower"`
	Upper int    `json:"upper"`
	Fixed bool   `json:"fixed"`
}

// instanceConstraint mirrors one built constraint.
type instanceConstraint struct {
	Name  string         `json:"name"`
	Sense string         `json:"sense"`
	Terms []instanceTerm `json:"terms"`
}

// instance is the --export-json-instance shape: every variable, the
// objective expression and sense, and every enabled constraint.
type instance struct {
	Name        string               `json:"name"`
	Minimize    bool                 `json:"minimize"`
	Objective   []instanceTerm       `json:"objective"`
	Variables   []instanceVariable   `json:"variables"`
	Constraints []instanceConstraint `json:"constraints"`
}

func instanceView(c *model.Container) *instance {
	out := &instance{
		Name:     c.Name(),
		Minimize: c.Objective().IsMinimization(),
	}
	for _, t := range c.Expression(c.Objective().Expression()).Terms() {
		out.Objective = append(out.Objective, instanceTerm{Variable: c.Variable(t.Var).Name(), Coef: t.Coef})
	}
	for _, vid := range c.AllVariables() {
		v := c.Variable(vid)
		lo, hi := v.Bounds()
		out.Variables = append(out.Variables, instanceVariable{Name: v.Name(), Lower: lo, Upper: hi, Fixed: v.IsFixed()})
	}
	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		ic := instanceConstraint{Name: cons.Name(), Sense: cons.Sense().String()}
		for _, t := range c.Expression(cons.Expression()).Terms() {
			ic.Terms = append(ic.Terms, instanceTerm{Variable: c.Variable(t.Var).Name(), Coef: t.Coef})
		}
		out.Constraints = append(out.Constraints, ic)
	}
	return out
}

func exportInstance(c *model.Container) error {
	return solution.WriteJSON(c.Name()+".json", instanceView(c))
}
