package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{
		"live": false, "backtest": false, "fetch": false, "config": false, "version": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"config", "validate"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.Execute(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
}

func TestConfigValidateRejectsMissingFile(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"--config", "does-not-exist.yaml", "config", "validate"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !strings.EqualFold(cfg.Exchange.Name, "binance") {
		t.Fatalf("default exchange = %q", cfg.Exchange.Name)
	}
}
