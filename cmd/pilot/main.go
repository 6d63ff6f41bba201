// Command pilot connects to a driver's rendezvous port and either drops
// into an interactive shell or runs a compiled userscript plugin.
package main

import (
	"fmt"
	"os"
	"plugin"
	"time"

	"github.com/spf13/cobra"

	"ptyrc/internal/pilotside"
	"ptyrc/internal/ptyrcconfig"
	"ptyrc/internal/ptyrclog"
	"ptyrc/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:                "pilot [userscript.so]",
		Short:              "connect to a driver and drive its mirrored terminal",
		Version:            version.DisplayVersion(),
		DisableFlagParsing: true,
		SilenceUsage:       true,
		Args:               cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}
			return run(args)
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pilot:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := ptyrcconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ptyrclog.SetVerbose(cfg.Verbose)

	backend := pilotside.NewBackend(cfg, 3*time.Second)
	p := backend.Start()

	if len(args) == 1 {
		return runUserscript(args[0], p)
	}

	p.WaitForDriver(true)
	p.DropShell()
	return nil
}

// runUserscript loads a compiled Go plugin and calls its required
// Main(*pilotside.Pilot) symbol. This is the Go-idiomatic equivalent of
// the original's importlib-based "script.py with main(pilot)" loading:
// Go has no dynamic interpreter, but does have plugin.Open, so a
// "userscript" here is a plugin built with `go build -buildmode=plugin`
// exporting a Main function with this exact signature.
func runUserscript(path string, p *pilotside.Pilot) error {
	plug, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("load userscript: %w", err)
	}
	sym, err := plug.Lookup("Main")
	if err != nil {
		return fmt.Errorf("userscript has no Main(*pilotside.Pilot) symbol: %w", err)
	}
	mainFn, ok := sym.(func(*pilotside.Pilot))
	if !ok {
		return fmt.Errorf("userscript Main has wrong signature, want func(*pilotside.Pilot)")
	}
	mainFn(p)
	return nil
}
