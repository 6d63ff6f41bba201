package pilotside

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// DropShell is the Go-idiomatic reduction of drop_shell: Python's
// code.interact gives the original a full interpreter with `pilot` in
// scope; Go has no analogous runtime eval, so this is a small verb-based
// command shell instead, dispatching to the same frontend methods.
// Ctrl+C and Ctrl+D are both confirm-quit keystrokes: pressed twice
// within 2 seconds, the process quits (see the double-keystroke window
// below); pressed once, DropShell prints the hint and keeps reading.
func (p *Pilot) DropShell() {
	fd := int(os.Stdin.Fd())
	var lastConfirm time.Time

	restore, err := term.MakeRaw(fd)
	if err != nil {
		p.runLoop(os.Stdin, &lastConfirm)
		return
	}
	defer term.Restore(fd, restore)
	p.rawLoop(fd, &lastConfirm)
}

// runLoop is the fallback line reader used when stdin isn't a real tty
// (raw mode unavailable): plain line-buffered reads, no confirm-quit
// keystroke handling since there is no raw Ctrl+D/Ctrl+C to intercept.
func (p *Pilot) runLoop(in *os.File, lastConfirm *time.Time) {
	buf := make([]byte, 4096)
	var line []byte
	for {
		n, err := in.Read(buf)
		if err != nil || n == 0 {
			return
		}
		for _, b := range buf[:n] {
			if b == '\n' {
				p.dispatch(strings.TrimSpace(string(line)))
				line = nil
				continue
			}
			line = append(line, b)
		}
	}
}

const (
	ctrlC = 0x03
	ctrlD = 0x04
)

func (p *Pilot) rawLoop(fd int, lastConfirm *time.Time) {
	fmt.Print("ptyrc> ")
	buf := make([]byte, 1)
	var line []byte
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		b := buf[0]

		switch b {
		case ctrlC, ctrlD:
			if !lastConfirm.IsZero() && time.Since(*lastConfirm) < 2*time.Second {
				p.Quit(nil)
				return
			}
			*lastConfirm = time.Now()
			fmt.Print("\r\nuse 'quit' or press again within 2s to exit\r\n")
			line = nil
			fmt.Print("ptyrc> ")
			continue
		case '\r', '\n':
			cmd := strings.TrimSpace(string(line))
			fmt.Print("\r\n")
			if cmd != "" {
				if p.dispatch(cmd) {
					return
				}
			}
			line = nil
			fmt.Print("ptyrc> ")
		case 0x7f, 0x08: // backspace/delete
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Print("\b \b")
			}
		default:
			line = append(line, b)
			os.Stdout.Write([]byte{b})
		}
	}
}

// dispatch runs one shell command, returning true if it should end the
// shell loop (a confirmed "quit").
func (p *Pilot) dispatch(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "quit", "exit":
		p.Quit(nil)
		return true
	case "text":
		row := 1
		if len(args) > 0 {
			row, _ = strconv.Atoi(args[0])
		}
		text, err := p.TextAt(row, true)
		if err != nil {
			fmt.Printf("error: %v\r\n", err)
			return false
		}
		fmt.Printf("%s\r\n", text)
	case "size":
		sz, err := p.Size()
		if err != nil {
			fmt.Printf("error: %v\r\n", err)
			return false
		}
		fmt.Printf("cols=%d rows=%d\r\n", sz[0], sz[1])
	case "cursor":
		pos, err := p.Cursor()
		if err != nil {
			fmt.Printf("error: %v\r\n", err)
			return false
		}
		fmt.Printf("col=%d row=%d\r\n", pos[0], pos[1])
	case "argv":
		argv, err := p.Argv()
		if err != nil {
			fmt.Printf("error: %v\r\n", err)
			return false
		}
		fmt.Printf("%s\r\n", strings.Join(argv, " "))
	case "input":
		if err := p.Input(strings.Join(args, " ")); err != nil {
			fmt.Printf("error: %v\r\n", err)
		}
	case "draw":
		if len(args) < 3 {
			fmt.Print("usage: draw <row> <col> <char>\r\n")
			return false
		}
		row, _ := strconv.Atoi(args[0])
		col, _ := strconv.Atoi(args[1])
		if err := p.Draw(row, col, args[2], nil, true, true); err != nil {
			fmt.Printf("error: %v\r\n", err)
		}
	default:
		fmt.Printf("unknown command: %s\r\n", verb)
	}
	return false
}
