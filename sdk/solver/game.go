package solver

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/lox/spotsolve/poker"
	"github.com/lox/spotsolve/sdk/analysis"
)

const deckSize = 52

// Game is an action tree bound to ranges and a board. Storage is created by
// Allocate; until then only the memory estimate is available.
type Game struct {
	tree  *ActionTree
	cards CardConfig
	board poker.Hand

	hands     [2][]poker.Hand
	weights   [2][]float64
	handCards [2][][2]uint8
	// same[p][i] is the index of hand i in the opponent's list, or -1.
	same       [2][]int32
	pairWeight float64

	root       *gameNode
	compressed bool

	iterations     int
	exploitability float64
}

// gameNode is an action node specialised to one board runout.
type gameNode struct {
	node     *ActionNode
	board    poker.Hand
	cards    []poker.Card
	children []*gameNode
	store    *nodeStore
	showdown *showdownTable
}

// NewGame binds the ranges and board in cards to tree.
func NewGame(cards CardConfig, tree *ActionTree) (*Game, error) {
	if tree == nil {
		return nil, errors.New("action tree is required")
	}
	board := cards.Board()
	if board.CountCards() != 3+int(cards.Street()-StreetFlop) {
		return nil, errors.New("board cards must be distinct")
	}
	if cards.Street() != tree.Config.InitialStreet {
		return nil, fmt.Errorf("board is dealt to the %s but the tree starts on the %s", cards.Street(), tree.Config.InitialStreet)
	}

	g := &Game{tree: tree, cards: cards, board: board}
	for p := range 2 {
		r, err := analysis.ParseRange(cards.Ranges[p])
		if err != nil {
			return nil, fmt.Errorf("range for player %d: %w", p, err)
		}
		hands, weights := r.Combos(board)
		if len(hands) == 0 {
			return nil, fmt.Errorf("range for player %d is empty on board %s", p, board)
		}
		g.hands[p] = hands
		g.weights[p] = weights
		g.handCards[p] = make([][2]uint8, len(hands))
		for i, h := range hands {
			c := h.Cards()
			g.handCards[p][i] = [2]uint8{uint8(c[0].Index()), uint8(c[1].Index())}
		}
	}

	for p := range 2 {
		index := make(map[poker.Hand]int32, len(g.hands[1-p]))
		for i, h := range g.hands[1-p] {
			index[h] = int32(i)
		}
		g.same[p] = make([]int32, len(g.hands[p]))
		for i, h := range g.hands[p] {
			if j, ok := index[h]; ok {
				g.same[p][i] = j
			} else {
				g.same[p][i] = -1
			}
		}
	}

	for i, h := range g.hands[OOP] {
		for j, o := range g.hands[IP] {
			if !h.Overlaps(o) {
				g.pairWeight += g.weights[OOP][i] * g.weights[IP][j]
			}
		}
	}
	if g.pairWeight == 0 {
		return nil, errors.New("ranges have no compatible combinations")
	}
	return g, nil
}

// Tree returns the action tree the game was built from.
func (g *Game) Tree() *ActionTree { return g.tree }

// Cards returns the card configuration.
func (g *Game) Cards() CardConfig { return g.cards }

// Hands returns the combos held by player, excluding board conflicts.
func (g *Game) Hands(player int) []poker.Hand { return g.hands[player] }

// Allocated reports whether storage exists.
func (g *Game) Allocated() bool { return g.root != nil }

// Compressed reports whether storage was allocated in compressed form.
func (g *Game) Compressed() bool { return g.compressed }

// Iterations returns the number of CFR iterations run so far.
func (g *Game) Iterations() int { return g.iterations }

var (
	gameNodeBytes = uint64(unsafe.Sizeof(gameNode{}))
	storeHeader   = uint64(unsafe.Sizeof(nodeStore{}))
	showdownBytes = uint64(unsafe.Sizeof(showdownTable{}))
)

// MemoryEstimate returns the bytes Allocate will need and the scratch each
// solver worker needs, without allocating anything.
func (g *Game) MemoryEstimate(compressed bool) (required, perThread uint64) {
	dealt := g.board.CountCards()
	depth := 0

	var walk func(n *ActionNode, runouts uint64, dealt, d int)
	walk = func(n *ActionNode, runouts uint64, dealt, d int) {
		depth = max(depth, d)
		required = satAdd(required, satMul(runouts, gameNodeBytes))
		switch n.Kind {
		case NodePlayer:
			bytes := storeHeader + storeBytes(len(n.Actions), len(g.hands[n.Player]), compressed)
			required = satAdd(required, satMul(runouts, bytes+uint64(len(n.Children))*8))
		case NodeChance:
			fan := uint64(deckSize - dealt)
			required = satAdd(required, satMul(runouts, fan*(8+8)))
			runouts = satMul(runouts, fan)
			dealt++
		}
		for _, c := range n.Children {
			walk(c, runouts, dealt, d+1)
		}
	}
	walk(g.tree.Root, 1, dealt, 0)

	if g.hasShowdown() {
		boards := binomial(deckSize-dealt, 5-dealt)
		hands := uint64(len(g.hands[0]) + len(g.hands[1]))
		required = satAdd(required, satMul(boards, showdownBytes+hands*(2+4)))
	}

	maxHands := uint64(max(len(g.hands[0]), len(g.hands[1])))
	actions := uint64(max(g.tree.maxActions, 1))
	perLevel := (actions*3 + 4) * maxHands * 8
	perThread = uint64(depth+1)*perLevel + 2*deckSize*8
	return required, perThread
}

func (g *Game) hasShowdown() bool {
	found := false
	g.tree.Walk(func(n *ActionNode, _ int) {
		if n.Kind == NodeShowdown {
			found = true
		}
	})
	return found
}

// Allocate creates regret and strategy storage for every decision node on
// every runout. It may only be called once.
func (g *Game) Allocate(compressed bool) error {
	if g.root != nil {
		return errors.New("game storage is already allocated")
	}
	tables := make(map[poker.Hand]*showdownTable)
	g.compressed = compressed
	g.root = g.expand(g.tree.Root, g.board, tables)
	return nil
}

func (g *Game) expand(n *ActionNode, board poker.Hand, tables map[poker.Hand]*showdownTable) *gameNode {
	gn := &gameNode{node: n, board: board}
	switch n.Kind {
	case NodePlayer:
		gn.store = newNodeStore(len(n.Actions), len(g.hands[n.Player]), g.compressed)
		gn.children = make([]*gameNode, len(n.Children))
		for i, c := range n.Children {
			gn.children[i] = g.expand(c, board, tables)
		}
	case NodeChance:
		for i := range deckSize {
			card := poker.CardFromIndex(i)
			if board.HasCard(card) {
				continue
			}
			gn.cards = append(gn.cards, card)
			gn.children = append(gn.children, g.expand(n.Children[0], board|poker.Hand(card), tables))
		}
	case NodeShowdown:
		t, ok := tables[board]
		if !ok {
			t = g.newShowdownTable(board)
			tables[board] = t
		}
		gn.showdown = t
	}
	return gn
}

// showdownTable ranks every hand against one complete board.
type showdownTable struct {
	rank [2][]poker.HandRank
	// order lists hand indices from weakest to strongest.
	order [2][]int32
}

const blockedRank = poker.HandRank(math.MaxUint16)

func (g *Game) newShowdownTable(board poker.Hand) *showdownTable {
	t := &showdownTable{}
	for p := range 2 {
		hands := g.hands[p]
		t.rank[p] = make([]poker.HandRank, len(hands))
		t.order[p] = make([]int32, len(hands))
		for i, h := range hands {
			if h.Overlaps(board) {
				t.rank[p][i] = blockedRank
			} else {
				t.rank[p][i] = poker.Evaluate7Cards(h | board)
			}
			t.order[p][i] = int32(i)
		}
		ranks := t.rank[p]
		slices.SortFunc(t.order[p], func(a, b int32) int {
			return int(ranks[b]) - int(ranks[a])
		})
	}
	return t
}

func satAdd(a, b uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return s
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func binomial(n, k int) uint64 {
	if k < 0 || k > n {
		return 0
	}
	r := uint64(1)
	for i := 1; i <= k; i++ {
		r = r * uint64(n-k+i) / uint64(i)
	}
	return r
}
