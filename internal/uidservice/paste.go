package uidservice

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const keyDelay = 50 * time.Millisecond

// PasteCommands returns the paste and enter command lines for goos. lookPath
// finds keyboard tools on Linux.
func PasteCommands(goos string, lookPath func(string) (string, error)) (paste, enter []string, err error) {
	switch goos {
	case "windows":
		const sendKeys = "Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('%s')"
		return []string{"powershell", "-Command", fmt.Sprintf(sendKeys, "^v")},
			[]string{"powershell", "-Command", fmt.Sprintf(sendKeys, "{ENTER}")}, nil
	case "linux":
		if _, err := lookPath("xdotool"); err == nil {
			return []string{"xdotool", "key", "ctrl+v"}, []string{"xdotool", "key", "Return"}, nil
		}
		if _, err := lookPath("xte"); err == nil {
			return []string{"xte", "keydown Control_L", "key v", "keyup Control_L"}, []string{"xte", "key Return"}, nil
		}
		return nil, nil, errors.New("no suitable keyboard automation tool found (install xdotool or xautomation)")
	case "darwin":
		return []string{"osascript", "-e", `tell application "System Events" to keystroke "v" using command down`},
			[]string{"osascript", "-e", `tell application "System Events" to keystroke return`}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// keyboardPaster sends paste then enter to the focused window.
type keyboardPaster struct {
	goos string
}

func (p keyboardPaster) Paste(ctx context.Context) error {
	paste, enter, err := PasteCommands(p.goos, exec.LookPath)
	if err != nil {
		return err
	}
	if err := sleep(ctx, keyDelay); err != nil {
		return err
	}
	if err := exec.CommandContext(ctx, paste[0], paste[1:]...).Run(); err != nil {
		return fmt.Errorf("failed to paste: %w", err)
	}
	if err := sleep(ctx, keyDelay); err != nil {
		return err
	}
	if err := exec.CommandContext(ctx, enter[0], enter[1:]...).Run(); err != nil {
		return fmt.Errorf("failed to press enter: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
