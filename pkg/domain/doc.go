/*
Package domain contains the core models of the botflow chatbot builder.

It defines the flow graph the editor produces, the records the stores persist
and the session snapshots the execution engine walks. The package is kept pure
and free of I/O so that the engine, the stores and every adapter share one
vocabulary.

# Key Entities

  - Node: A typed step in a conversation (start, message or question).
  - Edge: A directed, unconditional link between two nodes.
  - Flow: The aggregate of nodes and edges produced by the editor.
  - StoredFlow: A persisted Flow plus its store-assigned id and name.
  - ChatMessage: One line of a simulated conversation transcript.
  - Session: The snapshot of a simulated conversation (status, cursor, transcript).
*/
package domain
