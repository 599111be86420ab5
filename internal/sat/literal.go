// Package sat implements the non-recursive DPLL core: a watched-literal
// Boolean constraint propagation engine, a chronological decision/backtrack
// trail, and the deterministic outer search loop built on top of them. An
// optional conflict-driven clause-learning search mode (Options.Learning,
// cdcl.go) extends the same engine with first-UIP analysis and
// non-chronological backjumping.
package sat

import "fmt"

// Var identifies a propositional variable. Variables are 0-based internally;
// the DIMACS-style external API (1-based, signed) is translated at the
// boundary in solver.go.
type Var int

// Literal represents an instance of a variable or its negation. The value is
// twice the variable index, plus one for negation.
type Literal int

// PositiveLiteral returns the literal asserting v is true.
func PositiveLiteral(v Var) Literal {
	return Literal(v) * 2
}

// NegativeLiteral returns the literal asserting v is false.
func NegativeLiteral(v Var) Literal {
	return Literal(v)*2 + 1
}

// FromSigned converts a DIMACS-style signed, 1-based literal (as used at the
// package's external API boundary) into its packed internal form.
func FromSigned(l int) Literal {
	if l > 0 {
		return PositiveLiteral(Var(l - 1))
	}
	return NegativeLiteral(Var(-l - 1))
}

// Signed converts a packed literal back to DIMACS-style signed, 1-based form.
func (l Literal) Signed() int {
	v := int(l.Var()) + 1
	if l.IsPositive() {
		return v
	}
	return -v
}

// Var returns the variable the literal refers to.
func (l Literal) Var() Var {
	return Var(l / 2)
}

// IsPositive reports whether the literal asserts its variable true.
func (l Literal) IsPositive() bool {
	return l&1 == 0
}

// Opposite returns the negation of l.
func (l Literal) Opposite() Literal {
	return l ^ 1
}

func (l Literal) String() string {
	if l.IsPositive() {
		return fmt.Sprintf("%d", l.Var())
	}
	return fmt.Sprintf("-%d", l.Var())
}
