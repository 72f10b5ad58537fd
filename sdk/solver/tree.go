package solver

import (
	"fmt"
	"strconv"
)

// MaxTreeNodes bounds the size of a single action tree.
const MaxTreeNodes = 1 << 20

// ActionKind enumerates betting actions.
type ActionKind uint8

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

func (k ActionKind) String() string {
	switch k {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionBet:
		return "bet"
	case ActionRaise:
		return "raise"
	case ActionAllIn:
		return "allin"
	default:
		return "unknown"
	}
}

// Action is a betting action. Amount is the street total the actor bets or
// raises to and is zero for fold, check and call.
type Action struct {
	Kind   ActionKind `msgpack:"kind"`
	Amount int32      `msgpack:"amount,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionBet, ActionRaise, ActionAllIn:
		return a.Kind.String() + " " + strconv.Itoa(int(a.Amount))
	default:
		return a.Kind.String()
	}
}

// NodeKind classifies action tree nodes.
type NodeKind uint8

const (
	NodePlayer NodeKind = iota
	NodeChance
	NodeFold
	NodeShowdown
)

// ActionNode is one node of the betting tree. Contrib holds the chips each
// player has committed beyond the starting pot when the node is reached.
type ActionNode struct {
	Kind NodeKind
	// Player is the actor at player nodes and the folding player at fold
	// nodes.
	Player   int
	Street   Street
	Contrib  [2]int32
	Actions  []Action
	Children []*ActionNode
}

// Terminal reports whether the node ends the hand.
func (n *ActionNode) Terminal() bool {
	return n.Kind == NodeFold || n.Kind == NodeShowdown
}

// ActionTree is the betting structure shared by every board runout.
type ActionTree struct {
	Config     TreeConfig
	Root       *ActionNode
	nodes      int
	maxActions int
}

// NodeCount returns the number of nodes in the tree.
func (t *ActionTree) NodeCount() int { return t.nodes }

// MaxActions returns the largest number of actions at any player node.
func (t *ActionTree) MaxActions() int { return t.maxActions }

// BuildActionTree expands the betting tree described by cfg.
func BuildActionTree(cfg TreeConfig) (*ActionTree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree config: %w", err)
	}
	b := &treeBuilder{cfg: cfg}
	root, err := b.player(betState{
		street:        cfg.InitialStreet,
		player:        OOP,
		aggressor:     -1,
		prevAggressor: -1,
	})
	if err != nil {
		return nil, err
	}
	return &ActionTree{Config: cfg, Root: root, nodes: b.nodes, maxActions: b.maxActions}, nil
}

// betState is the position reached during tree expansion.
type betState struct {
	street        Street
	player        int
	contrib       [2]int32
	streetStart   int32
	lastIncr      int32
	acted         int
	aggressor     int
	prevAggressor int
}

type treeBuilder struct {
	cfg        TreeConfig
	nodes      int
	maxActions int
}

func (b *treeBuilder) node(n *ActionNode) (*ActionNode, error) {
	b.nodes++
	if b.nodes > MaxTreeNodes {
		return nil, fmt.Errorf("action tree exceeds %d nodes", MaxTreeNodes)
	}
	return n, nil
}

func (b *treeBuilder) player(s betState) (*ActionNode, error) {
	n, err := b.node(&ActionNode{Kind: NodePlayer, Player: s.player, Street: s.street, Contrib: s.contrib})
	if err != nil {
		return nil, err
	}

	p, q := s.player, 1-s.player
	facing := s.contrib[q] - s.contrib[p]
	if facing > 0 {
		n.Actions = append(n.Actions, Action{Kind: ActionFold}, Action{Kind: ActionCall})
	} else {
		n.Actions = append(n.Actions, Action{Kind: ActionCheck})
	}
	for _, to := range b.sizes(s) {
		kind := ActionBet
		switch {
		case s.streetStart+to == b.cfg.EffectiveStack:
			kind = ActionAllIn
		case facing > 0:
			kind = ActionRaise
		}
		n.Actions = append(n.Actions, Action{Kind: kind, Amount: to})
	}
	if len(n.Actions) > b.maxActions {
		b.maxActions = len(n.Actions)
	}

	n.Children = make([]*ActionNode, len(n.Actions))
	for i, a := range n.Actions {
		child, err := b.apply(s, a)
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	return n, nil
}

func (b *treeBuilder) apply(s betState, a Action) (*ActionNode, error) {
	p, q := s.player, 1-s.player
	next := s
	next.acted++

	switch a.Kind {
	case ActionFold:
		return b.node(&ActionNode{Kind: NodeFold, Player: p, Street: s.street, Contrib: s.contrib})
	case ActionCheck:
		if p == IP {
			return b.endStreet(next)
		}
		next.player = q
		return b.player(next)
	case ActionCall:
		next.contrib[p] = s.contrib[q]
		return b.endStreet(next)
	default:
		to := s.streetStart + a.Amount
		next.lastIncr = to - s.contrib[q]
		next.contrib[p] = to
		next.aggressor = p
		next.player = q
		return b.player(next)
	}
}

func (b *treeBuilder) endStreet(s betState) (*ActionNode, error) {
	allIn := s.contrib[0] == b.cfg.EffectiveStack
	if s.street == StreetRiver {
		return b.node(&ActionNode{Kind: NodeShowdown, Street: s.street, Contrib: s.contrib})
	}

	n, err := b.node(&ActionNode{Kind: NodeChance, Street: s.street + 1, Contrib: s.contrib})
	if err != nil {
		return nil, err
	}
	next := betState{
		street:        s.street + 1,
		player:        OOP,
		contrib:       s.contrib,
		streetStart:   s.contrib[0],
		aggressor:     -1,
		prevAggressor: s.aggressor,
	}
	var child *ActionNode
	if allIn {
		child, err = b.endStreet(next)
	} else {
		child, err = b.player(next)
	}
	if err != nil {
		return nil, err
	}
	n.Children = []*ActionNode{child}
	return n, nil
}

// Walk visits every node in depth-first order.
func (t *ActionTree) Walk(fn func(n *ActionNode, depth int)) {
	var walk func(n *ActionNode, depth int)
	walk = func(n *ActionNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root, 0)
}
