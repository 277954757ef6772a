package descriptor

// Node is a single operator of an expanded plan tree.
//
// Contract:
// - Immutability: a node and its inputs are never mutated after expansion.
// - Concurrency: nodes may be read from any goroutine without locking.
type Node interface {
	// Inputs returns the operator's input nodes, leaves return nil.
	Inputs() []Node
}

// TableScan is a plan leaf reading a table.
type TableScan struct {
	// Table is the qualified name of the scanned table.
	Table []string

	// Version is the dataset version tag captured at expansion time.
	Version string

	// Resident reports whether the scanned table lives in the catalog.
	// Non-resident scans cannot be checked for freshness and are treated
	// conservatively as updated.
	Resident bool
}

func (s *TableScan) Inputs() []Node { return nil }

// Operator is an internal plan node with one or more inputs.
type Operator struct {
	// Kind names the operation, e.g. "project", "filter", "aggregate".
	Kind string

	// Children are the operator inputs.
	Children []Node
}

func (o *Operator) Inputs() []Node { return o.Children }

// Walk visits n and its inputs in pre-order. It stops early when fn returns
// false for any node.
func Walk(n Node, fn func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, in := range n.Inputs() {
		if !Walk(in, fn) {
			return false
		}
	}
	return true
}

// Scans collects every TableScan leaf of the plan rooted at n.
func Scans(n Node) []*TableScan {
	var scans []*TableScan
	Walk(n, func(node Node) bool {
		if scan, ok := node.(*TableScan); ok {
			scans = append(scans, scan)
		}
		return true
	})
	return scans
}

var (
	_ Node = (*TableScan)(nil)
	_ Node = (*Operator)(nil)
)
