package kfmt

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrefixWriter(t *testing.T) {
	specs := []struct {
		input string
		exp   string
	}{
		{
			"",
			"",
		},
		{
			"\n",
			"[pic] \n",
		},
		{
			"masks 0xfc/0xff",
			"[pic] masks 0xfc/0xff",
		},
		{
			"initialized\n",
			"[pic] initialized\n",
		},
		{
			"\nmaster remapped\nslave remapped\ncascade on line 2",
			"[pic] \n[pic] master remapped\n[pic] slave remapped\n[pic] cascade on line 2",
		},
	}

	var (
		buf bytes.Buffer
		w   = PrefixWriter{
			Sink:   &buf,
			Prefix: []byte("[pic] "),
		}
	)

	for specIndex, spec := range specs {
		buf.Reset()
		w.bytesAfterPrefix = 0

		wrote, err := w.Write([]byte(spec.input))
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
		}

		if expLen := len(spec.input); expLen != wrote {
			t.Errorf("[spec %d] expected writer to write %d bytes; wrote %d", specIndex, expLen, wrote)
		}

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected output:\n%q\ngot:\n%q", specIndex, spec.exp, got)
		}
	}
}

func TestPrefixWriterFprintfFragments(t *testing.T) {
	var buf bytes.Buffer
	w := PrefixWriter{Sink: &buf, Prefix: []byte("[trap] ")}

	// Fprintf emits the literal text and every formatted argument with a
	// separate Write; only the first fragment of a line gets the prefix.
	Fprintf(&w, "installed %d gates", 3)
	if w.bytesAfterPrefix != len("installed 3 gates") {
		t.Fatalf("expected the fragments to be counted as one line; got %d bytes", w.bytesAfterPrefix)
	}

	Fprintf(&w, " (%s)\n", "idt")
	Fprintf(&w, "vector %d%s %x\n", 32, ":", 0x20)
	Fprintf(&w, "%s", "")

	exp := "[trap] installed 3 gates (idt)\n[trap] vector 32: 20\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}

	if w.bytesAfterPrefix != 0 {
		t.Fatalf("expected a completed line to reset the byte count; got %d", w.bytesAfterPrefix)
	}
}

func TestPrefixWriterErrors(t *testing.T) {
	specs := []string{
		"masks 0xfc/0xff",
		"\nmaster remapped\nslave remapped",
	}

	var (
		expErr = errors.New("console detached")
		w      = PrefixWriter{
			Sink:   failingWriter{expErr},
			Prefix: []byte("[pic] "),
		}
	)

	for specIndex, spec := range specs {
		w.bytesAfterPrefix = 0
		if _, err := w.Write([]byte(spec)); err != expErr {
			t.Errorf("[spec %d] expected error: %v; got %v", specIndex, expErr, err)
		}
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write(_ []byte) (int, error) {
	return 0, w.err
}
