package main

import (
	"testing"
)

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	want := []string{
		"install",
		"update",
		"list-python",
		"install-python",
		"info",
		"create-venv",
		"install-deps",
		"install-editable",
		"clean-cache",
	}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSubcommandFlags(t *testing.T) {
	cases := []struct {
		command string
		flags   []string
	}{
		{"create-venv", []string{"python", "timeout", "retries"}},
		{"install-deps", []string{"requirements", "packages", "dev", "no-parallel"}},
		{"install-editable", []string{"no-parallel"}},
		{"clean-cache", []string{"older-than"}},
	}

	for _, tc := range cases {
		var found bool
		for _, c := range rootCmd.Commands() {
			if c.Name() != tc.command {
				continue
			}
			found = true
			for _, flag := range tc.flags {
				if c.Flags().Lookup(flag) == nil {
					t.Errorf("%s: missing flag --%s", tc.command, flag)
				}
			}
		}
		if !found {
			t.Errorf("command %q not found", tc.command)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, flag := range []string{"verbose", "config"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}
