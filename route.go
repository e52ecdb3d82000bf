package campaign

// RouteDecision names the next node to execute, or marks the session
// terminal. Decisions can only be constructed through Goto and End, so a
// router cannot fabricate a destination the graph does not know about
// without the engine failing loudly at dispatch time.
type RouteDecision struct {
	target   NodeName
	terminal bool
}

// Goto routes execution to the named node.
func Goto(target NodeName) RouteDecision {
	return RouteDecision{target: target}
}

// End marks the session terminal.
func End() RouteDecision {
	return RouteDecision{terminal: true}
}

// Target returns the destination node name. Only meaningful when the
// decision is not terminal.
func (d RouteDecision) Target() NodeName {
	return d.target
}

// Terminal reports whether the decision ends the session.
func (d RouteDecision) Terminal() bool {
	return d.terminal
}

// Router selects the next node after its owning node completes. Routers must
// be pure functions of the state.
type Router func(state *WorkflowState) RouteDecision

// StaticRoute returns a router that always selects the same next node.
func StaticRoute(target NodeName) Router {
	return func(*WorkflowState) RouteDecision {
		return Goto(target)
	}
}

// TerminalRoute returns a router that always ends the session.
func TerminalRoute() Router {
	return func(*WorkflowState) RouteDecision {
		return End()
	}
}
