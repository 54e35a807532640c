package recorder

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func TestJSONFileRecorder_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.jsonl")
	r := NewJSONFileRecorder(path)
	for i := 1; i <= 3; i++ {
		if err := r.Record(map[string]int{"firings": i}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		var row map[string]int
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("line %d: %v", n, err)
		}
		if row["firings"] != n {
			t.Fatalf("line %d: got %v", n, row)
		}
	}
	if n != 3 {
		t.Fatalf("got %d lines, want 3", n)
	}
}
