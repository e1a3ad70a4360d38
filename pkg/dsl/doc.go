/*
Package dsl provides a fluent Go builder for pushdown automata.

It is an alternative to JSON/YAML definition files for tests, generated
automata and IDE-checked code. States, input symbols and stack symbols are
declared as they are used; Build validates the result like any other
definition.

Example usage:

	b := dsl.New("balanced").StartStack("Z")

	b.State("q0").Initial().
		On("a", "Z").Push("A", "Z").Go("q0").
		On("a", "A").Push("A", "A").Go("q0").
		On("b", "A").Pop().Go("q1")

	b.State("q1").
		On("b", "A").Pop().Go("q1").
		Epsilon("Z").Push("Z").Go("q2")

	b.State("q2").Accept()

	model, err := b.Build()
*/
package dsl
