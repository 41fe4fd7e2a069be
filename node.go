package rendergraph

import "fmt"

// NodeKind tags the resource kind a node refers to.
type NodeKind uint8

// Node kinds.
const (
	BufferKind NodeKind = iota
	ImageKind
	AccelerationStructureKind
)

func (k NodeKind) String() string {
	switch k {
	case BufferKind:
		return "buffer"
	case ImageKind:
		return "image"
	case AccelerationStructureKind:
		return "acceleration structure"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Node is a copyable reference to a resource bound into one graph. It is
// only meaningful to the graph that issued it.
type Node struct {
	graph uint64
	index int
	kind  NodeKind
}

// Kind returns the resource kind.
func (n Node) Kind() NodeKind { return n.kind }

// Graph returns the id of the issuing graph.
func (n Node) Graph() uint64 { return n.graph }

// Index returns the node's slot in its graph's binding table.
func (n Node) Index() int { return n.index }

func (n Node) String() string {
	return fmt.Sprintf("%s#%d@g%d", n.kind, n.index, n.graph)
}

func (n Node) node() Node { return n }

// AnyNode is implemented by BufferNode, ImageNode and
// AccelerationStructureNode.
type AnyNode interface {
	node() Node
}

// BufferNode refers to a bound buffer.
type BufferNode struct{ Node }

// ImageNode refers to a bound image.
type ImageNode struct{ Node }

// AccelerationStructureNode refers to a bound acceleration structure.
type AccelerationStructureNode struct{ Node }
