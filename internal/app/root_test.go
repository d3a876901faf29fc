package app

import (
	"testing"
)

func TestSubcommandRegistration(t *testing.T) {
	want := []string{"report", "publish", "setup", "categories"}

	for _, name := range want {
		found := false
		for _, cmd := range RootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s command not registered with root command", name)
		}
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "backend", "log-level"} {
		if RootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %s not defined", name)
		}
	}

	backend := RootCmd.PersistentFlags().Lookup("backend")
	if backend.DefValue != "influx" {
		t.Errorf("backend default = %q, want influx", backend.DefValue)
	}
}
