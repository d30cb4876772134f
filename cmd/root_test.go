package cmd

import (
	"os"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	rc := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	want := map[string]bool{"extract": false, "filter": false, "kafka": false}
	for _, sub := range rc.Commands() {
		name := strings.Fields(sub.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %s", name)
		}
	}
}

func TestExtractFlags(t *testing.T) {
	ec := NewExtractCommand(os.Stdin, os.Stdout, os.Stderr)
	for _, name := range []string{"data-dir", "output-dir", "user-fraction", "map-backend", "counts-file"} {
		if ec.Flags().Lookup(name) == nil {
			t.Fatalf("extract should expose a --%s flag", name)
		}
	}
	if err := ec.Flags().Set("user-fraction", "0.25"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	if ExtractMain.UserFraction != 0.25 {
		t.Fatalf("flag did not reach the config struct: %v", ExtractMain.UserFraction)
	}
}
