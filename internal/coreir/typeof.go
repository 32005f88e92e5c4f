package coreir

import "surge/internal/types"

// TypeOf computes the type of a core expression. Call nodes carry no
// result type of their own: it is recovered by peeling the callee's
// function type by one arrow per argument, following aliases as the
// environment requires. Every other kind carries (or delegates to) its
// type directly.
func (e *Expr) TypeOf(env TypeEnv) types.TypeID {
	if e == nil || env == nil {
		return types.NoTypeID
	}
	switch e.Kind {
	case ExprConst:
		d, _ := e.AsConst()
		return d.Literal.TypeOf(env)
	case ExprIdent:
		d, _ := e.AsIdent()
		return d.Ident.Type
	case ExprData:
		d, _ := e.AsData()
		return d.Tag.Type
	case ExprCall:
		d, _ := e.AsCall()
		return callReturnType(env, d.Callee.TypeOf(env), len(d.Args))
	case ExprLet:
		d, _ := e.AsLet()
		return d.Body.TypeOf(env)
	case ExprMatch:
		d, _ := e.AsMatch()
		if len(d.Alternatives) == 0 {
			return types.NoTypeID
		}
		return d.Alternatives[0].Expr.TypeOf(env)
	default:
		return types.NoTypeID
	}
}

// callReturnType peels argCount arrows off calleeType, following function
// types one argument at a time. A Hole result short-circuits immediately,
// matching the upstream's incomplete-inference behavior.
func callReturnType(env TypeEnv, calleeType types.TypeID, argCount int) types.TypeID {
	if argCount == 0 || env.IsHole(calleeType) {
		return calleeType
	}
	calleeType = env.ResolveAlias(calleeType)
	rest, ok := env.FuncArrow(calleeType)
	if !ok {
		panic(coreirError("call result type: callee type is not a function"))
	}
	return callReturnType(env, rest, argCount-1)
}
