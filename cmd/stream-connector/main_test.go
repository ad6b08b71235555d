package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigCommandPrintsDefaults(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{`"ServiceName": "stream-connector"`, `"Host": "futures_combined"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %s:\n%s", want, out.String())
		}
	}
}

func TestConfigCommandMissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "--config", "does/not/exist.yaml"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
