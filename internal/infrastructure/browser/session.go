package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/infrastructure/logger"
)

const defaultStepTimeout = 15 * time.Second

// Session owns the Chrome process and the main tab the portal is driven in.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mainTarget  target.ID
	stepTimeout time.Duration
	logger      *logger.Logger

	closeOnce sync.Once
}

type Credentials struct {
	URL      string
	Login    string
	Password string
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(1366, 900),
	)
	if path := strings.TrimSpace(cfg.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	if dir := strings.TrimSpace(cfg.UserDataDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			opts = append(opts, chromedp.UserDataDir(dir))
		}
	}
	return opts
}

// Start launches Chrome and opens a blank main tab.
func Start(cfg config.BrowserConfig, stepTimeout time.Duration, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Warnf),
	)

	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	s := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		stepTimeout: stepTimeout,
		logger:      log,
	}
	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		s.mainTarget = c.Target.TargetID
	}
	log.Infow("browser_session_started", "target", s.mainTarget, "headless", cfg.Headless)
	return s, nil
}

// Close terminates the main tab and the Chrome process.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.allocCancel()
	})
}

func (s *Session) MainTarget() target.ID {
	return s.mainTarget
}

// Run executes actions on the main tab, bounded by timeout and by callCtx.
func (s *Session) Run(callCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	return s.runIn(s.ctx, callCtx, timeout, actions...)
}

func (s *Session) runIn(tabCtx, callCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if tabCtx.Err() != nil {
		return ErrSessionClosed
	}
	if timeout <= 0 {
		timeout = s.stepTimeout
	}
	runCtx, cancel := bound(tabCtx, callCtx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// bound derives a context from tabCtx that also ends after timeout or when
// callCtx is done. chromedp needs the tab context as parent, so the caller's
// cancellation is forwarded instead of inherited.
func bound(tabCtx, callCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(tabCtx, timeout)
	if callCtx == nil {
		return ctx, cancel
	}
	done := callCtx.Done()
	if done == nil {
		return ctx, cancel
	}
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Authenticate logs into the portal: login and password are typed into the
// login field separated by TAB and submitted with ENTER, then the landing
// menu entry is clicked.
func (s *Session) Authenticate(ctx context.Context, creds Credentials) error {
	s.logger.Infow("portal_login_started", "url", creds.URL)

	if err := s.Run(ctx, 0, chromedp.Navigate(creds.URL)); err != nil {
		return stepError(ErrLoginFailed, "navigate", err)
	}
	err := s.Run(ctx, 0,
		chromedp.WaitReady(`[name="login"]`, chromedp.ByQuery),
		chromedp.Clear(`[name="login"]`, chromedp.ByQuery),
		chromedp.SendKeys(`[name="login"]`, creds.Login+kb.Tab+creds.Password+kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return stepError(ErrLoginFailed, "credentials", err)
	}
	if err := s.Run(ctx, 0,
		chromedp.WaitReady(`#manip2`, chromedp.ByQuery),
		chromedp.Click(`#manip2`, chromedp.ByQuery),
	); err != nil {
		return stepError(ErrLoginFailed, "landing", err)
	}

	s.logger.Infow("portal_login_ok")
	return nil
}

// pageTargets lists the page targets currently open in the browser.
func (s *Session) pageTargets(ctx context.Context) ([]*target.Info, error) {
	if s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}
	listCtx, cancel := bound(s.ctx, ctx, s.stepTimeout)
	defer cancel()
	infos, err := chromedp.Targets(listCtx)
	if err != nil {
		return nil, err
	}
	pages := infos[:0]
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// activateMain brings the main tab back to the foreground.
func (s *Session) activateMain(ctx context.Context) error {
	if s.mainTarget == "" {
		return nil
	}
	return s.Run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.ActivateTarget(s.mainTarget).Do(ctx)
	}))
}

// attach opens a chromedp context on an existing target.
func (s *Session) attach(id target.ID) (context.Context, context.CancelFunc) {
	return chromedp.NewContext(s.ctx, chromedp.WithTargetID(id))
}
