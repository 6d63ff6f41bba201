package driverside

import (
	"os"
	"os/exec"
	"path/filepath"
)

// ResolveArgv mirrors argv2cmd: if no command was given, fall back to
// $EDITOR, then the first fallback found on PATH. The resolved command is
// looked up on PATH unless it is already an absolute, existing file.
func ResolveArgv(args []string, editorFallbacks []string) []string {
	if len(args) == 0 {
		args = defaultCommand(editorFallbacks)
	}
	if len(args) == 0 {
		return nil
	}

	cmd := args[0]
	if !(filepath.IsAbs(cmd) && fileExists(cmd)) {
		if resolved, err := exec.LookPath(cmd); err == nil {
			cmd = resolved
		}
	}
	out := append([]string{cmd}, args[1:]...)
	return out
}

func defaultCommand(fallbacks []string) []string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return []string{editor}
	}
	for _, name := range fallbacks {
		if path, err := exec.LookPath(name); err == nil {
			return []string{path}
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
