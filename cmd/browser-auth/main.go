// Package main provides the browser-auth CLI: complete a manual login in a
// real browser once, capture the resulting session state, persist it, and
// reuse it for unattended authenticated downloads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stevehaigh/browser-auth-helper/pkg/capture"
	"github.com/stevehaigh/browser-auth-helper/pkg/config"
	"github.com/stevehaigh/browser-auth-helper/pkg/logging"
	"github.com/stevehaigh/browser-auth-helper/pkg/preview"
	"github.com/stevehaigh/browser-auth-helper/pkg/replay"
	"github.com/stevehaigh/browser-auth-helper/pkg/store"
)

const version = "0.1.0"

// flagOptions holds command-line overrides on top of the YAML config.
type flagOptions struct {
	ConfigPath     string
	TargetURL      string
	ArtifactPath   string
	OutputFile     string
	TimeoutSeconds int
	Selector       string
	Headless       bool
	LogLevel       string
	ShowVersion    bool
}

func main() {
	opts := parseFlags()

	if opts.ShowVersion {
		fmt.Printf("browser-auth v%s\n", version)
		return
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	applyFlags(cfg, opts)

	cleanup, err := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Logging setup error: %v", err)
	}
	defer cleanup()

	// Interrupts cancel the flow context; resource teardown runs through
	// the deferred closes inside run.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println(warnStyle.Render("\nInterrupted, shutting down..."))
		cancel()
	}()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		cancel()
		log.Fatalf("browser-auth: %v", err)
	}
}

func parseFlags() *flagOptions {
	opts := &flagOptions{}

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to YAML configuration file")
	flag.StringVar(&opts.TargetURL, "url", "", "URL of the site that requires authentication")
	flag.StringVar(&opts.ArtifactPath, "cookies-file", "", "Path of the session artifact (default: session_cookies.json)")
	flag.StringVar(&opts.OutputFile, "output", "", "File downloaded pages are written to (default: downloaded_page.html)")
	flag.IntVar(&opts.TimeoutSeconds, "login-timeout", 0, "Maximum seconds to wait for the manual login")
	flag.StringVar(&opts.Selector, "wait-for", "", "Element selector that must be present after login")
	flag.BoolVar(&opts.Headless, "headless", false, "Run the capture browser without a window")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "browser-auth - capture a manual browser login and replay it over HTTP\n\n")
		fmt.Fprintf(os.Stderr, "Usage: browser-auth [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  browser-auth -url https://example.com/account\n")
		fmt.Fprintf(os.Stderr, "  browser-auth -url example.com -wait-for '#dashboard' -login-timeout 120\n")
		fmt.Fprintf(os.Stderr, "  browser-auth -config browser-auth.yaml\n")
	}

	flag.Parse()
	return opts
}

func applyFlags(cfg *config.Config, opts *flagOptions) {
	if opts.TargetURL != "" {
		cfg.TargetURL = opts.TargetURL
	}
	if opts.ArtifactPath != "" {
		cfg.ArtifactPath = opts.ArtifactPath
	}
	if opts.OutputFile != "" {
		cfg.OutputFile = opts.OutputFile
	}
	if opts.TimeoutSeconds > 0 {
		cfg.Login.TimeoutSeconds = opts.TimeoutSeconds
	}
	if opts.Selector != "" {
		cfg.Login.Selector = opts.Selector
	}
	if opts.Headless {
		cfg.Headless = true
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	p := newPrompter()
	fmt.Println(titleStyle.Render("Browser Authentication Helper"))

	target := cfg.TargetURL
	if target == "" {
		answer, err := p.ask(ctx, "Enter the URL that requires authentication: ")
		if err != nil {
			return err
		}
		target = answer
	}
	if target == "" {
		return fmt.Errorf("no target URL provided")
	}
	target = normalizeTargetURL(target)

	fileStore := store.New(cfg.ArtifactPath)

	// Reuse a saved session when one exists and still works.
	if bundle, err := fileStore.Load(); err == nil {
		fmt.Println(infoStyle.Render(fmt.Sprintf(
			"Found saved session for %s (captured %s)", bundle.Domain, bundle.Timestamp)))
		if p.yes(ctx, "Use existing session? (y/n): ") {
			replayCtx, buildErr := replay.BuildContext(bundle, replay.Options{Timeout: cfg.HTTPTimeout()})
			if buildErr == nil {
				ok, verifyErr := replayCtx.VerifyAuthenticated(ctx, target,
					replay.LoginMarkers(replay.DefaultLoginMarkers...))
				if verifyErr == nil && ok {
					fmt.Println(successStyle.Render("Existing session is still valid."))
					return downloadFlow(ctx, p, replayCtx, cfg, target)
				}
			}
			fmt.Println(warnStyle.Render("Saved session is no longer valid, re-authenticating."))
		}
	} else {
		var loadErr *store.LoadError
		if errors.As(err, &loadErr) && loadErr.Reason == store.ReasonNotFound {
			fmt.Println(infoStyle.Render("No saved session found, starting manual login."))
		} else {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Saved session is unusable: %v", err)))
		}
	}

	replayCtx, err := captureSession(ctx, p, cfg, fileStore, target)
	if err != nil {
		return err
	}

	ok, err := replayCtx.VerifyAuthenticated(ctx, target,
		replay.LoginMarkers(replay.DefaultLoginMarkers...))
	if err != nil {
		return err
	}
	if ok {
		fmt.Println(successStyle.Render("Authentication successful."))
	} else {
		fmt.Println(warnStyle.Render("Response still looks like a login page; continuing anyway."))
	}

	return downloadFlow(ctx, p, replayCtx, cfg, target)
}

// captureSession runs the manual-login capture and returns a replay context
// built from the freshly saved bundle. The browser is released on every
// exit path.
func captureSession(ctx context.Context, p *prompter, cfg *config.Config, fileStore *store.FileStore, target string) (*replay.Context, error) {
	loginURL := cfg.Login.URL
	if loginURL == "" {
		loginURL = target
	}

	fmt.Println(infoStyle.Render("Opening browser to " + loginURL))
	browser, err := capture.Launch(loginURL, capture.LaunchOptions{Headless: cfg.Headless})
	if err != nil {
		return nil, err
	}
	defer browser.Close()

	printLoginInstructions()

	waitCtx, cancelWait := context.WithCancel(ctx)
	confirm := p.confirmations(waitCtx)
	err = capture.WaitForLogin(ctx, browser, confirm, capture.WaitOptions{
		Timeout:  cfg.LoginTimeout(),
		Selector: cfg.Login.Selector,
	})
	cancelWait()
	if err != nil {
		var timeoutErr *capture.TimeoutError
		switch {
		case errors.As(err, &timeoutErr):
			fmt.Println(errorStyle.Render(timeoutErr.Error()))
		case errors.Is(err, capture.ErrLoginAborted):
			fmt.Println(errorStyle.Render("Login aborted."))
		}
		return nil, err
	}

	bundle, err := capture.Snapshot(browser)
	if err != nil {
		return nil, err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Captured %d cookies from %s", len(bundle.Cookies), bundle.Domain)))

	// A failed save is reported but does not block this run; the session
	// just will not survive to the next one.
	if err := fileStore.Save(bundle); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Could not save session artifact: %v", err)))
	} else {
		fmt.Println(successStyle.Render(fmt.Sprintf(
			"Session saved to %s (%d cookies)", fileStore.Path(), len(bundle.Cookies))))
	}

	return replay.BuildContext(bundle, replay.Options{Timeout: cfg.HTTPTimeout()})
}

func downloadFlow(ctx context.Context, p *prompter, replayCtx *replay.Context, cfg *config.Config, target string) error {
	answer, err := p.ask(ctx, fmt.Sprintf("Enter URL to download (or press ENTER for %s): ", target))
	if err != nil {
		return err
	}
	downloadURL := answer
	if downloadURL == "" {
		downloadURL = target
	}

	written, err := replayCtx.Download(ctx, downloadURL, cfg.OutputFile)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Downloaded %d bytes to %s", written, cfg.OutputFile)))

	choice, err := p.ask(ctx, "How would you like to view the page? (b)rowser / (t)ext preview: ")
	if err != nil {
		return err
	}
	if strings.HasPrefix(strings.ToLower(choice), "b") {
		if err := openInBrowser(cfg.OutputFile); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Could not open browser: %v", err)))
		}
		return nil
	}

	text, err := preview.File(cfg.OutputFile, preview.DefaultMaxRunes)
	if err != nil {
		return err
	}
	fmt.Println(dimStyle.Render(strings.Repeat("-", 50)))
	fmt.Println(text)
	fmt.Println(dimStyle.Render(strings.Repeat("-", 50)))
	return nil
}

// normalizeTargetURL adds an https scheme to bare host input.
func normalizeTargetURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func printLoginInstructions() {
	lines := []string{
		"MANUAL LOGIN INSTRUCTIONS",
		"1. Complete the login process in the browser window",
		"2. Navigate to any protected page to verify login",
		"3. Press ENTER in this terminal when you are done",
		"4. Or type 'quit' to abort",
	}
	fmt.Println(instructionStyle.Render(strings.Join(lines, "\n")))
}
