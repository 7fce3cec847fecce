package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// openInBrowser opens a downloaded file in the system's default browser.
func openInBrowser(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("file not found: %s", abs)
	}

	fileURL := "file://" + abs
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", fileURL).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", fileURL).Start()
	default:
		return exec.Command("xdg-open", fileURL).Start()
	}
}
