package repl

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) execute(_ context.Context, args []string) error {
	r.calls = append(r.calls, args)
	return r.err
}

func newTestREPL(input string, rec *recorder, historyFile string) (*REPL, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(Config{
		Input:       strings.NewReader(input),
		Output:      out,
		Prompt:      "px> ",
		Commands:    []string{"canvas", "contributors", "epoch", "archive", "help"},
		Execute:     rec.execute,
		HistoryFile: historyFile,
	}), out
}

func TestREPL_RunExits(t *testing.T) {
	for _, input := range []string{"exit\n", "quit\n", "", "\n\n"} {
		rec := &recorder{}
		r, _ := newTestREPL(input, rec, "")
		if err := r.Run(context.Background()); err != nil {
			t.Errorf("Run(%q) error = %v", input, err)
		}
		if len(rec.calls) != 0 {
			t.Errorf("Run(%q) executed %v", input, rec.calls)
		}
	}
}

func TestREPL_Execute(t *testing.T) {
	rec := &recorder{}
	r, out := newTestREPL("epoch --countdown\nc\ncan paint 1 2 '#fff'\nexit\nepoch\n", rec, "")
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][]string{
		{"epoch", "--countdown"},
		{"canvas", "paint", "1", "2", "#fff"},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), `ambiguous command "c": canvas, contributors`) {
		t.Errorf("missing ambiguity message:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "px> ") {
		t.Error("prompt not printed")
	}
}

func TestREPL_ErrorsDoNotStopLoop(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	r, out := newTestREPL("epoch\nbogus\nepoch\n", rec, "")
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(rec.calls))
	}
	if got := strings.Count(out.String(), "error: boom"); got != 2 {
		t.Errorf("printed %d command errors:\n%s", got, out.String())
	}
	if !strings.Contains(out.String(), `unknown command "bogus"`) {
		t.Errorf("missing unknown command message:\n%s", out.String())
	}
}

func TestREPL_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	r, _ := newTestREPL("epoch\n", rec, "")
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rec.calls) != 0 {
		t.Error("command executed after cancel")
	}
}

func TestREPL_HistoryPersisted(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sub", "history")

	r, _ := newTestREPL("epoch\narchive list\n", &recorder{}, file)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	r, out := newTestREPL("history\n", rec, file)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1  epoch", "2  archive list", "3  history"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("history output missing %q:\n%s", want, out.String())
		}
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"a b  c", []string{"a", "b", "c"}, false},
		{`paint 1 2 "#ff 00"`, []string{"paint", "1", "2", "#ff 00"}, false},
		{`x 'it''s'`, []string{"x", "its"}, false},
		{`a\ b c`, []string{"a b", "c"}, false},
		{`'\n'`, []string{`\n`}, false},
		{`""`, []string{""}, false},
		{`"open`, nil, true},
		{`trailing\`, nil, true},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitArgs(%q) error = %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("SplitArgs(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
