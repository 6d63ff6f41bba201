// Command driver spawns a child process under a pty and mirrors its
// screen to a pilot connected over the local rendezvous protocol.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ptyrc/internal/capability"
	"ptyrc/internal/driverside"
	"ptyrc/internal/ptyrcconfig"
	"ptyrc/internal/ptyrclog"
	"ptyrc/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:                   "driver [command] [args...]",
		Short:                 "spawn a process under a pty and mirror it to a pilot",
		Version:               version.DisplayVersion(),
		DisableFlagParsing:    true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}
			return run(args)
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "driver:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// The child's exit code becomes the driver's. Deferred first, so it
	// runs after every other cleanup in run (terminal restore, pty close).
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	cfg, err := ptyrcconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ptyrclog.SetVerbose(cfg.Verbose)

	argv := driverside.ResolveArgv(args, cfg.EditorFallbacks)
	if len(argv) == 0 {
		return fmt.Errorf("no command to run and no fallback found on PATH")
	}

	oracle, err := capability.Load(os.Stdout)
	if err != nil {
		return fmt.Errorf("load terminal capabilities: %w", err)
	}

	s := driverside.New(argv, cfg, oracle)

	fd := int(os.Stdin.Fd())
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}
	s.Screen.Resize(rows, cols)

	restore, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer term.Restore(fd, restore)

	if err := s.StartPTY(argv, rows, cols); err != nil {
		return err
	}
	defer s.PTM.Close()

	stop := make(chan struct{})
	defer close(stop)

	go s.ServerLoop(stop)
	go s.ScreenWatcher(stop, 100*time.Millisecond)
	go s.CursorPoller(stop, cursorQuery(oracle), 10*time.Millisecond)
	go pollTermSizeLoop(s, fd, stop)
	go flushEarlyBufferOnce(s)

	go pumpMasterOutput(s)
	go pumpStdin(s)

	err = s.Cmd.Wait()
	exitCode = 0
	if err != nil {
		exitCode = 1
		if exitErr, ok := err.(interface{ ExitCode() int }); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	s.Finish(exitCode)
	s.SendToClient("exit", exitCode)
	if oracle.Available() {
		os.Stdout.Write(oracle.RMCUP())
	}
	return nil
}

func cursorQuery(o *capability.Oracle) []byte {
	if o == nil {
		return nil
	}
	return o.CursorQuery()
}

func pollTermSizeLoop(s *driverside.State, fd int, stop <-chan struct{}) {
	s.PollTermSize(fd, s.ResizePTY)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)
	for {
		select {
		case <-stop:
			return
		case <-sigCh:
			s.PollTermSize(fd, s.ResizePTY)
		}
	}
}

func flushEarlyBufferOnce(s *driverside.State) {
	time.Sleep(s.InitialLatency + s.InitialLatency/10)
	out, skip := s.FlushEarlyBuffer()
	if !skip && len(out) > 0 {
		os.Stdout.Write(out)
	}
}

func pumpMasterOutput(s *driverside.State) {
	buf := make([]byte, 4096)
	for {
		n, err := s.PTM.Read(buf)
		if n > 0 {
			out, skip := s.MasterRead(append([]byte(nil), buf[:n]...))
			if !skip {
				os.Stdout.Write(out)
			}
		}
		if err != nil {
			return
		}
	}
}

func pumpStdin(s *driverside.State) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			out, skip, eof := s.StdinRead(append([]byte(nil), buf[:n]...))
			if eof {
				return
			}
			if !skip && s.PTM != nil {
				s.PTM.Write(out)
			}
		}
		if err != nil {
			return
		}
	}
}
