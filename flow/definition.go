package flow

// Definition is the immutable description of a workflow graph: the node
// registry, the edge registry, and the entry point.
//
// A Definition is built once at process start with AddNode / AddEdge /
// AddConditionalEdges / SetEntry and sealed with Compile. Compile validates
// the graph and freezes it; the Executor refuses a definition that has not
// been compiled. Nothing mutates a Definition after the first run begins.
//
// Every non-terminal node has exactly one outgoing static edge or exactly
// one conditional edge set. A node with no outgoing edges is terminal: the
// run completes after executing it.
//
// Example:
//
//	def := flow.NewDefinition()
//	_ = def.AddNode("triage", triageNode)
//	_ = def.AddNode("fast", fastNode)
//	_ = def.AddNode("slow", slowNode)
//	_ = def.AddConditionalEdges("triage", routeBySize, map[string]string{
//	    "small": "fast",
//	    "large": "slow",
//	})
//	_ = def.SetEntry("triage")
//	if err := def.Compile(); err != nil {
//	    log.Fatal(err)
//	}
type Definition struct {
	nodes       map[string]Node
	static      map[string]string
	conditional map[string]conditionalEdgeSet
	entry       string
	compiled    bool
}

// conditionalEdgeSet maps route-function results to target nodes for one
// source node.
type conditionalEdgeSet struct {
	route   RouteFunc
	targets map[string]string
}

// NewDefinition creates an empty graph definition.
func NewDefinition() *Definition {
	return &Definition{
		nodes:       make(map[string]Node),
		static:      make(map[string]string),
		conditional: make(map[string]conditionalEdgeSet),
	}
}

// AddNode registers a node under a unique name.
func (d *Definition) AddNode(name string, node Node) error {
	if d.compiled {
		return &DefinitionError{Message: "definition is sealed"}
	}
	if name == "" {
		return &DefinitionError{Message: "node name cannot be empty"}
	}
	if node == nil {
		return &DefinitionError{Message: "node cannot be nil: " + name}
	}
	if _, exists := d.nodes[name]; exists {
		return &DefinitionError{Message: "duplicate node name: " + name}
	}
	d.nodes[name] = node
	return nil
}

// AddEdge registers an unconditional edge from one node to another. A node
// may carry at most one outgoing edge, static or conditional.
func (d *Definition) AddEdge(from, to string) error {
	if d.compiled {
		return &DefinitionError{Message: "definition is sealed"}
	}
	if from == "" || to == "" {
		return &DefinitionError{Message: "edge endpoints cannot be empty"}
	}
	if _, exists := d.static[from]; exists {
		return &DefinitionError{Message: "node already has a static edge: " + from}
	}
	if _, exists := d.conditional[from]; exists {
		return &DefinitionError{Message: "node already has conditional edges: " + from}
	}
	d.static[from] = to
	return nil
}

// AddConditionalEdges registers a conditional edge set: route computes a key
// from the current state, and targets maps each declared key to the next
// node. A key outside the declared mapping is a RoutingError at run time,
// never a silent default.
func (d *Definition) AddConditionalEdges(from string, route RouteFunc, targets map[string]string) error {
	if d.compiled {
		return &DefinitionError{Message: "definition is sealed"}
	}
	if from == "" {
		return &DefinitionError{Message: "edge source cannot be empty"}
	}
	if route == nil {
		return &DefinitionError{Message: "route function cannot be nil: " + from}
	}
	if len(targets) == 0 {
		return &DefinitionError{Message: "conditional edge set cannot be empty: " + from}
	}
	if _, exists := d.static[from]; exists {
		return &DefinitionError{Message: "node already has a static edge: " + from}
	}
	if _, exists := d.conditional[from]; exists {
		return &DefinitionError{Message: "node already has conditional edges: " + from}
	}
	copied := make(map[string]string, len(targets))
	for key, to := range targets {
		if key == "" || to == "" {
			return &DefinitionError{Message: "conditional edge key and target cannot be empty: " + from}
		}
		copied[key] = to
	}
	d.conditional[from] = conditionalEdgeSet{route: route, targets: copied}
	return nil
}

// SetEntry sets the node at which every run starts.
func (d *Definition) SetEntry(name string) error {
	if d.compiled {
		return &DefinitionError{Message: "definition is sealed"}
	}
	if name == "" {
		return &DefinitionError{Message: "entry node name cannot be empty"}
	}
	d.entry = name
	return nil
}

// Compile validates the graph and seals the definition. After Compile
// succeeds the definition is read-only and safe for concurrent runs.
//
// Validation fails when the entry node is unset or unknown, or when any edge
// references an undeclared node.
func (d *Definition) Compile() error {
	if d.compiled {
		return nil
	}
	if d.entry == "" {
		return &DefinitionError{Message: "entry node not set"}
	}
	if _, exists := d.nodes[d.entry]; !exists {
		return &DefinitionError{Message: "entry node not declared: " + d.entry}
	}
	for from, to := range d.static {
		if _, exists := d.nodes[from]; !exists {
			return &DefinitionError{Message: "edge source not declared: " + from}
		}
		if _, exists := d.nodes[to]; !exists {
			return &DefinitionError{Message: "edge target not declared: " + to}
		}
	}
	for from, set := range d.conditional {
		if _, exists := d.nodes[from]; !exists {
			return &DefinitionError{Message: "edge source not declared: " + from}
		}
		for key, to := range set.targets {
			if _, exists := d.nodes[to]; !exists {
				return &DefinitionError{Message: "edge target not declared: " + to + " (key " + key + " from " + from + ")"}
			}
		}
	}
	d.compiled = true
	return nil
}

// Entry returns the entry node name.
func (d *Definition) Entry() string {
	return d.entry
}

// NodeCount returns the number of registered nodes.
func (d *Definition) NodeCount() int {
	return len(d.nodes)
}

// Terminal reports whether a node has no outgoing edges.
func (d *Definition) Terminal(name string) bool {
	if _, exists := d.static[name]; exists {
		return false
	}
	if _, exists := d.conditional[name]; exists {
		return false
	}
	return true
}

// node looks up a node implementation by name.
func (d *Definition) node(name string) (Node, bool) {
	n, ok := d.nodes[name]
	return n, ok
}

// next resolves the node following from against the given state. It returns
// terminal=true when from has no outgoing edge, or a RoutingError when a
// conditional route function produces an undeclared key.
func (d *Definition) next(from string, state State) (to string, terminal bool, err error) {
	if to, ok := d.static[from]; ok {
		return to, false, nil
	}
	if set, ok := d.conditional[from]; ok {
		key := set.route(state)
		to, ok := set.targets[key]
		if !ok {
			return "", false, &RoutingError{Node: from, Key: key}
		}
		return to, false, nil
	}
	return "", true, nil
}
