package integrations

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/AlecAivazis/survey/v2"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func fileURI(file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// AndroidLauncher opens a file in the target package with an
// android.intent.action.VIEW intent through the activity manager.
type AndroidLauncher struct {
	Package string
	Run     Runner
}

func NewAndroidLauncher(pkg string) *AndroidLauncher {
	return &AndroidLauncher{Package: pkg, Run: execRunner}
}

func (l *AndroidLauncher) Launch(ctx context.Context, file string) error {
	uri, err := fileURI(file)
	if err != nil {
		return err
	}
	out, err := l.Run(ctx, "am", "start",
		"-a", "android.intent.action.VIEW",
		"-d", uri,
		"-t", "application/zip",
		"-f", "1",
		"-p", l.Package,
	)
	if classified := classifyAmOutput(string(out)); classified != nil {
		return classified
	}
	if err != nil {
		return fmt.Errorf("am start failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// classifyAmOutput maps activity manager messages to handoff errors. am often
// exits 0 even when nothing was started.
func classifyAmOutput(out string) error {
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "unable to resolve"), strings.Contains(lower, "does not exist"):
		return fmt.Errorf("%w: %s", ErrHandoffUnavailable, strings.TrimSpace(out))
	case strings.Contains(lower, "already started"),
		strings.Contains(lower, "brought to the front"),
		strings.Contains(lower, "delivered to currently running"):
		return ErrAlreadyStarted
	case strings.Contains(lower, "error"):
		return fmt.Errorf("am start: %s", strings.TrimSpace(out))
	}
	return nil
}

// AndroidSharer sends the file with an ACTION_SEND intent.
type AndroidSharer struct {
	Run Runner
}

func NewAndroidSharer() *AndroidSharer {
	return &AndroidSharer{Run: execRunner}
}

func (s *AndroidSharer) Share(ctx context.Context, file string) error {
	uri, err := fileURI(file)
	if err != nil {
		return err
	}
	out, err := s.Run(ctx, "am", "start",
		"-a", "android.intent.action.SEND",
		"-t", "application/zip",
		"--eu", "android.intent.extra.STREAM", uri,
		"-f", "1",
	)
	if err != nil {
		return fmt.Errorf("am start failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if classified := classifyAmOutput(string(out)); classified != nil && classified != ErrAlreadyStarted {
		return classified
	}
	return nil
}

// OpenSharer hands the file to the desktop's default opener.
type OpenSharer struct {
	GOOS string
	Run  Runner
}

func NewOpenSharer(goos string) *OpenSharer {
	return &OpenSharer{GOOS: goos, Run: execRunner}
}

func (s *OpenSharer) command(file string) (string, []string) {
	switch s.GOOS {
	case "darwin":
		return "open", []string{"-R", file}
	case "windows":
		return "cmd", []string{"/c", "start", "", file}
	default:
		return "xdg-open", []string{filepath.Dir(file)}
	}
}

func (s *OpenSharer) Share(ctx context.Context, file string) error {
	name, args := s.command(file)
	out, err := s.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ForegroundFlag is an AppState driven by focus events.
type ForegroundFlag struct {
	v atomic.Bool
}

func NewForegroundFlag(foreground bool) *ForegroundFlag {
	f := &ForegroundFlag{}
	f.v.Store(foreground)
	return f
}

func (f *ForegroundFlag) Set(foreground bool) {
	f.v.Store(foreground)
}

func (f *ForegroundFlag) Foreground() bool {
	return f.v.Load()
}

// SurveyPrompter asks on the terminal.
type SurveyPrompter struct{}

func (SurveyPrompter) Confirm(title, message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s: %s", title, message),
		Default: true,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// StaticPrompter always gives the same answer, for non-interactive runs.
type StaticPrompter struct {
	Answer bool
}

func (p StaticPrompter) Confirm(title, message string) (bool, error) {
	return p.Answer, nil
}

// NewPlatformDispatcher wires the launcher and sharer for goos. Only Android
// supports opening the target app directly; elsewhere every delivery goes
// through the share prompt.
func NewPlatformDispatcher(goos, targetPackage string, prompter Prompter, app AppState, opts ...DispatcherOption) *Dispatcher {
	if goos == "android" {
		opts = append([]DispatcherOption{WithLauncher(NewAndroidLauncher(targetPackage))}, opts...)
		return NewDispatcher(NewAndroidSharer(), prompter, app, opts...)
	}
	return NewDispatcher(NewOpenSharer(goos), prompter, app, opts...)
}
