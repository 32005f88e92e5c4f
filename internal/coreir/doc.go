// Package coreir provides the core intermediate representation that sits
// between a typed surface expression tree and the bytecode compiler.
//
// The core IR is a variant of administrative-normal-form lambda calculus
// with flat, non-nested case discrimination. Translating into it is where
// nested pattern matching gets compiled into a decision tree of one-level
// matches: see match_compile.go for the Barrett-Wadler/Hob-style algorithm.
//
// Every node produced by a single call to Translate is owned by one Arena
// (arena.go) and must not outlive it; CoreExpr (coreexpr.go) bundles the two
// together so callers hold a single self-contained value.
package coreir
