// Package pipeline runs question answering workflows as fixed graphs of
// steps over a shared state record.
//
// A Graph is built from named nodes and edges between them, anchored by the
// reserved Start and End nodes. Compile checks that the nodes form a single
// acyclic path from Start to End and returns a Runnable. Each node receives a
// copy of the current State and returns a partial Update; the runner merges
// the update into the state before moving to the next node. Nodes never run
// concurrently within one invocation, but a Runnable may be invoked from many
// goroutines at once.
//
// Example:
//
//	g := pipeline.New("simple").
//		AddNode("retrieve", retrieve).
//		AddNode("generate", generate).
//		AddEdge(pipeline.Start, "retrieve").
//		AddEdge("retrieve", "generate").
//		AddEdge("generate", pipeline.End)
//	run, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := run.Invoke(ctx, pipeline.State{Question: "What is task decomposition?"})
package pipeline
