package pipeline

import (
	"bufio"
	"io"
	"os"

	"github.com/lox/spotsolve/internal/fileutil"
)

// Persister saves solved games. By default the output is created or
// truncated in place; Atomic writes to a temporary file and renames it.
type Persister struct {
	Atomic bool
	Perm   os.FileMode
}

// trackingWriter remembers the first error returned by the underlying
// writer so write failures can be told apart from encode failures.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

// Save writes game to path. Failures are returned as *PersistError.
func (p *Persister) Save(game Game, annotation, path string, compression Compression) error {
	encodeFailed := false
	save := func(w io.Writer) error {
		tw := &trackingWriter{w: w}
		err := game.Save(tw, annotation, compression)
		if err != nil && tw.err == nil {
			encodeFailed = true
		}
		return err
	}

	var err error
	if p.Atomic {
		perm := p.Perm
		if perm == 0 {
			perm = 0o644
		}
		err = fileutil.WriteAtomic(path, perm, save)
	} else {
		err = writeDirect(path, save)
	}
	if err != nil {
		return &PersistError{Path: path, Serialization: encodeFailed, Err: err}
	}
	return nil
}

func writeDirect(path string, save func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := save(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
