package solver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	artifactMagic   = "SPOTSOLV"
	artifactVersion = 1

	flagCompressed byte = 1 << 0
)

// Artifact is the persisted form of a solved game: the inputs it was built
// from plus the average strategy at every decision node of every runout.
type Artifact struct {
	Version        int            `msgpack:"version"`
	Annotation     string         `msgpack:"annotation"`
	Tree           TreeConfig     `msgpack:"tree"`
	Cards          CardConfig     `msgpack:"cards"`
	Board          string         `msgpack:"board"`
	Hands          [2][]string    `msgpack:"hands"`
	Iterations     int            `msgpack:"iterations"`
	Exploitability float64        `msgpack:"exploitability"`
	TreeNodes      int            `msgpack:"tree_nodes"`
	Nodes          []ArtifactNode `msgpack:"nodes"`
}

// ArtifactNode is the average strategy at one decision point. Strategy is
// action-major: Strategy[a*len(hands)+h].
type ArtifactNode struct {
	History  string    `msgpack:"history"`
	Player   int       `msgpack:"player"`
	Actions  []Action  `msgpack:"actions"`
	Strategy []float32 `msgpack:"strategy"`
}

// CompressionLevel configures artifact compression.
type CompressionLevel struct {
	Enabled bool
	// Level follows the zstd command line scale; 0 selects the default.
	Level int
}

func encoderLevel(level int) zstd.EncoderLevel {
	if level == 0 {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(level)
}

// Artifact snapshots the game's average strategies.
func (g *Game) Artifact(annotation string) (*Artifact, error) {
	if g.root == nil {
		return nil, errNotAllocated
	}
	a := &Artifact{
		Version:        artifactVersion,
		Annotation:     annotation,
		Tree:           g.tree.Config,
		Cards:          g.cards,
		Board:          g.board.String(),
		Iterations:     g.iterations,
		Exploitability: g.exploitability,
		TreeNodes:      g.tree.NodeCount(),
	}
	for p := range 2 {
		a.Hands[p] = make([]string, len(g.hands[p]))
		for i, h := range g.hands[p] {
			a.Hands[p][i] = h.String()
		}
	}

	var walk func(n *gameNode, history []string)
	walk = func(n *gameNode, history []string) {
		switch n.node.Kind {
		case NodePlayer:
			avg := n.store.averageStrategy()
			strat := make([]float32, len(avg))
			for i, v := range avg {
				strat[i] = float32(v)
			}
			a.Nodes = append(a.Nodes, ArtifactNode{
				History:  strings.Join(history, ":"),
				Player:   n.node.Player,
				Actions:  n.node.Actions,
				Strategy: strat,
			})
			for i, c := range n.children {
				walk(c, append(history, n.node.Actions[i].String()))
			}
		case NodeChance:
			for i, c := range n.children {
				walk(c, append(history, n.cards[i].String()))
			}
		}
	}
	walk(g.root, nil)
	return a, nil
}

// Save writes the game as an artifact to w.
func (g *Game) Save(w io.Writer, annotation string, compression CompressionLevel) error {
	a, err := g.Artifact(annotation)
	if err != nil {
		return err
	}
	return a.Write(w, compression)
}

// Write encodes the artifact: an 8-byte magic, a version byte, a flags byte,
// then the msgpack body, zstd-compressed when requested.
func (a *Artifact) Write(w io.Writer, compression CompressionLevel) error {
	body, err := msgpack.Marshal(a)
	if err != nil {
		return &EncodeError{Err: err}
	}

	var flags byte
	if compression.Enabled {
		if compression.Level < 0 || compression.Level > 22 {
			return &EncodeError{Err: fmt.Errorf("compression level %d out of range", compression.Level)}
		}
		flags |= flagCompressed
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(encoderLevel(compression.Level)))
		if err != nil {
			return &EncodeError{Err: fmt.Errorf("create zstd encoder: %w", err)}
		}
		if _, err := enc.Write(body); err != nil {
			enc.Close()
			return &EncodeError{Err: err}
		}
		if err := enc.Close(); err != nil {
			return &EncodeError{Err: err}
		}
		body = buf.Bytes()
	}

	header := append([]byte(artifactMagic), artifactVersion, flags)
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// EncodeError reports a failure to serialise an artifact, as opposed to a
// failure writing it.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode artifact: " + e.Err.Error() }

func (e *EncodeError) Unwrap() error { return e.Err }

// ErrNotArtifact is returned when input does not start with the artifact
// header.
var ErrNotArtifact = errors.New("not a spotsolve artifact")

// LoadArtifact reads an artifact written by Save.
func LoadArtifact(r io.Reader) (*Artifact, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(artifactMagic)+2)
	if _, err := io.ReadFull(br, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotArtifact
		}
		return nil, err
	}
	if string(header[:len(artifactMagic)]) != artifactMagic {
		return nil, ErrNotArtifact
	}
	if v := header[len(artifactMagic)]; v != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", v)
	}

	var body io.Reader = br
	if header[len(artifactMagic)+1]&flagCompressed != 0 {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		body = dec
	}

	var a Artifact
	if err := msgpack.NewDecoder(body).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	return &a, nil
}

// Compressed reports whether a stream starts with a compressed artifact
// header.
func Compressed(header []byte) bool {
	return len(header) >= len(artifactMagic)+2 &&
		string(header[:len(artifactMagic)]) == artifactMagic &&
		header[len(artifactMagic)+1]&flagCompressed != 0
}
