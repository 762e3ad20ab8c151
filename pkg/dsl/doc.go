/*
Package dsl provides a fluent builder for constructing botflow flows in Go.

It is an alternative to writing the JSON/YAML document by hand, useful for
generated flows, tests and examples. Nodes keep the order in which they are
added and edges the order in which they are declared, which is the order the
engine uses to pick a successor.

Example usage:

	b := dsl.New()

	b.Add("start").Start().
		Then("welcome").Message("Welcome to botflow!").
		Then("ask_name").Question("What is your name?").Store().
		Then("bye").Message("Thanks, we will be in touch.")

	flow, err := b.Build()
	if err != nil {
		// ...
	}
	// flow can be saved to a FlowStore or run by the engine.
*/
package dsl
