package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestResolveRequestedLogLevelPrefersExplicitFlag(t *testing.T) {
	prev := logLevel
	logLevel = "warn"
	t.Cleanup(func() {
		logLevel = prev
	})

	if got := resolveRequestedLogLevel(nil); got != "warn" {
		t.Fatalf("expected explicit log level to win, got %q", got)
	}
}

func TestResolveRequestedLogLevelUsesVerboseFallback(t *testing.T) {
	prev := logLevel
	logLevel = ""
	t.Cleanup(func() {
		logLevel = prev
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("verbose", false, "")
	if err := cmd.Flags().Set("verbose", "true"); err != nil {
		t.Fatalf("set verbose: %v", err)
	}

	if got := resolveRequestedLogLevel(cmd); got != "debug" {
		t.Fatalf("expected verbose flag to set debug level, got %q", got)
	}
}

func TestResolveRequestedLogLevelIgnoresUnsetVerbose(t *testing.T) {
	prev := logLevel
	logLevel = ""
	t.Cleanup(func() {
		logLevel = prev
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("verbose", false, "")

	if got := resolveRequestedLogLevel(cmd); got != "" {
		t.Fatalf("expected empty when verbose not set, got %q", got)
	}
}

func TestAttachLoggingHooksAddsHookToSubcommand(t *testing.T) {
	root := createRootCommand()
	for _, name := range []string{"build", "install", "sdist", "bdist", "validate", "show", "upload", "clean"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s command: %v", name, err)
		}
		if cmd == nil || cmd.Name() != name {
			t.Fatalf("%s command not found", name)
		}
		if cmd.PersistentPreRunE == nil {
			t.Errorf("expected logging hook on %s command", name)
		}
	}
}

func TestCompileFlagDefaultsOff(t *testing.T) {
	root := createRootCommand()
	f := root.PersistentFlags().Lookup("compile")
	if f == nil {
		t.Fatal("--compile flag not registered")
	}
	if f.DefValue != "false" {
		t.Errorf("--compile should default to false, got %s", f.DefValue)
	}
}

func TestNormalizeFlagName(t *testing.T) {
	prev := logLevel
	t.Cleanup(func() {
		logLevel = prev
	})

	root := createRootCommand()
	if err := root.PersistentFlags().Parse([]string{"--log_level", "warn"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := root.PersistentFlags().Lookup("log-level").Value.String(); got != "warn" {
		t.Errorf("expected --log_level to set --log-level, got %q", got)
	}
}
