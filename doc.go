// Package rendergraph records GPU work as a graph of passes over bound
// resources and turns it into ordered, synchronized command buffers.
//
// # Overview
//
// Resources are moved into a Graph with Bind* and referenced through typed
// nodes. Each pass declares how it touches those nodes: coarse Read, Write
// and ReadWrite intents, explicit access types, color and depth
// attachments, or descriptor slots of a bound pipeline. Callbacks added
// with Execute record the actual commands.
//
// # Quick Start
//
//	dev, _ := driver.Open()
//	g := rendergraph.New(rendergraph.WithLabel("frame"))
//	color := g.BindImage(target)
//
//	g.BeginPass("triangle").
//		BindPipeline(pipe).
//		AttachColor(0, color, gputypes.LoadOpClear, gputypes.StoreOpStore).
//		Execute(func(r *rendergraph.Recorder) { r.Draw(3, 1, 0, 0) }).
//		Submit()
//
//	sub, err := g.Resolve().Submit(dev)
//	if err != nil {
//		return err
//	}
//	defer sub.Release()
//
// # Resolution
//
// Resolve derives a dependency DAG from the declared accesses: a pass
// depends on every earlier pass it conflicts with on some resource, where
// two accesses conflict if either writes. Passes are ordered
// topologically with declaration order breaking ties. With three or more
// passes the order is refined to start long dependency chains early.
// Adjacent graphic passes with identical extent are then merged into one
// native render pass when nothing between them needs more than
// attachment-local synchronization.
//
// Barriers are synthesized from the access state each resource carries
// across graphs. Reads that share an image layout accumulate without a
// barrier; every write and every layout change gets one.
//
// # Partial Recording
//
// RecordNodeDependencies, RecordNode and RecordUnscheduledPasses record
// parts of the schedule before Submit, for example to hand a node to
// another graph early. Each call produces one command buffer; Submit
// submits all of them in recording order.
//
// # Errors
//
// Misuse of the API (foreign nodes, undeclared accesses, attachment
// mismatches) panics with a *ProgrammingError wrapping one of the Err*
// sentinels. Device failures are returned as errors, after which the
// failed recording is discarded and the tracked state rolled back.
package rendergraph
