package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "injected version", version: "1.2.3", want: "guidance 1.2.3"},
		{name: "dev build falls back to build info", version: "dev", want: "guidance "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version

			var buf bytes.Buffer
			versionCmd.SetOut(&buf)
			defer versionCmd.SetOut(nil)

			versionCmd.Run(versionCmd, nil)

			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Errorf("output = %q, want prefix %q", buf.String(), tt.want)
			}
		})
	}
}

func TestRootRegistersCommands(t *testing.T) {
	want := []string{"serve", "index", "ask", "query", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestIndexRequiresVersionFlag(t *testing.T) {
	original := indexVersionID
	defer func() { indexVersionID = original }()
	indexVersionID = ""

	err := indexCmd.RunE(indexCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--version") {
		t.Errorf("err = %v, want missing --version error", err)
	}
}

func TestQueryRequiresVersionFlag(t *testing.T) {
	original := queryVersionID
	defer func() { queryVersionID = original }()
	queryVersionID = ""

	err := queryCmd.RunE(queryCmd, []string{"setback"})
	if err == nil || !strings.Contains(err.Error(), "--version") {
		t.Errorf("err = %v, want missing --version error", err)
	}
}

func TestQueryRejectsBlankText(t *testing.T) {
	original := queryVersionID
	defer func() { queryVersionID = original }()
	queryVersionID = "gv1"

	err := queryCmd.RunE(queryCmd, []string{"   "})
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("err = %v, want empty-query error", err)
	}
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	err := askCmd.RunE(askCmd, []string{" ", ""})
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("err = %v, want empty-question error", err)
	}
}
