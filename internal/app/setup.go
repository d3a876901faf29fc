package app

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewmetrics/internal/brew"
	"github.com/blackwell-systems/brewmetrics/internal/influx"
)

// backendFormulae maps each backend to the Homebrew formula providing its CLI.
var backendFormulae = map[influx.Backend]string{
	influx.BackendInflux:    "influx-cli",
	influx.BackendFlightSQL: "influxdb3",
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install backend CLI dependencies without querying",
	Long: `Verify that the backend CLI is installed (installing it via Homebrew
if not) and that credentials are present. No analytics queries are run.`,
	RunE: runSetup,
}

func init() {
	RootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if err := checkOptOut(); err != nil {
		return err
	}

	backend, err := influx.ParseBackend(backendName)
	if err != nil {
		return err
	}

	bin := backend.Bin()
	if _, err := exec.LookPath(bin); err == nil {
		fmt.Printf("✓ %s is on PATH\n", bin)
	} else {
		formula := backendFormulae[backend]
		fmt.Printf("%s not found, installing %s via Homebrew...\n", bin, formula)

		installed, err := brew.IsInstalled(formula)
		if err != nil {
			return err
		}
		if !installed {
			if err := brew.Install(formula); err != nil {
				return err
			}
		}
		fmt.Printf("✓ installed %s\n", formula)
	}

	if _, err := resolveToken(); err != nil {
		fmt.Printf("✗ %s is not set; queries will fail until it is exported\n", envToken)
		return nil
	}
	fmt.Printf("✓ %s is set\n", envToken)

	return nil
}
