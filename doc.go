/*
Package botflow is the backend of a chatbot builder: it stores conversation
flows designed on a canvas and runs them as a "test bot".

A flow is a graph of typed blocks (start, message, question) joined by
directed edges. The engine walks the graph from the start block, emits the
bot lines of message and question blocks, suspends on each question until an
answer is submitted, and ends the conversation when a block has no outgoing
edge.

# Architecture

  - pkg/domain: the flow document, sessions, chat messages and editor operations.
  - internal/runtime: the stateless execution engine.
  - pkg/ports: FlowStore, SessionStore and DistributedLocker interfaces.
  - pkg/adapters: memory, SQLite, Redis and file implementations, plus the
    HTTP and MCP surfaces.
  - pkg/session: server-side sessions with per-session locking.

# Usage

The Simulator runs a single conversation in process:

	sim := botflow.NewSimulator()
	ctx := context.Background()

	if _, err := sim.Start(ctx, flow); err != nil {
		log.Fatal(err)
	}
	for sim.State() == domain.StatusAwaitingInput {
		if _, err := sim.Submit(ctx, readLine()); err != nil {
			log.Print(err)
		}
	}
	for _, msg := range sim.Transcript() {
		fmt.Printf("%s: %s\n", msg.Type, msg.Text)
	}

Workspace implements the "one working document" policy of the editor on
top of any ports.FlowStore.
*/
package botflow
