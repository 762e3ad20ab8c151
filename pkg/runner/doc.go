// Package runner provides the interactive chat loop used by the CLI.
//
// A Runner pairs a ports.StatelessEngine with an IOHandler. TextHandler is
// the terminal front end (speaker prefixes, optional markdown rendering and a
// cosmetic typing delay); JSONHandler emits one transcript line per JSON
// object for scripting. Every answer passes through an InputPolicy before it
// reaches the engine.
package runner
