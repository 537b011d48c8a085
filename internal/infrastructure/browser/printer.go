package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/infrastructure/logger"
)

const (
	previewApp         = "print-preview-app"
	previewSidebar     = "print-preview-sidebar"
	previewButtonStrip = "print-preview-button-strip"
	previewMore        = "print-preview-more-settings"
	previewMargins     = "print-preview-margins-settings"
)

// ShadowPath builds a JS expression that walks open shadow roots: each host
// is queried inside the previous host's shadow root and leaf is queried in
// the last one.
func ShadowPath(hosts []string, leaf string) string {
	var b strings.Builder
	b.WriteString("document")
	for i, host := range hosts {
		if i > 0 {
			b.WriteString("?.shadowRoot")
		}
		fmt.Fprintf(&b, "?.querySelector(%s)", strconv.Quote(host))
	}
	if len(hosts) > 0 {
		b.WriteString("?.shadowRoot")
	}
	fmt.Fprintf(&b, "?.querySelector(%s)", strconv.Quote(leaf))
	return strings.Replace(b.String(), "document?.", "document.", 1)
}

var (
	printButtonPath  = ShadowPath([]string{previewApp, previewSidebar, previewButtonStrip}, ".action-button")
	cancelButtonPath = ShadowPath([]string{previewApp, previewSidebar, previewButtonStrip}, "cr-button.cancel-button")
	moreSettingsPath = ShadowPath([]string{previewApp, previewSidebar, previewMore}, "cr-expand-button #label")
	marginSelectPath = ShadowPath([]string{previewApp, previewSidebar, previewMargins}, "select")
)

// targetLister reports the page targets open in the browser.
type targetLister func(ctx context.Context) ([]*target.Info, error)

// Printer drives Chrome's print preview window.
type Printer struct {
	session      *Session
	targets      targetLister
	timeout      time.Duration
	pollInterval time.Duration
	stepTimeout  time.Duration
	logger       *logger.Logger
}

func NewPrinter(session *Session, cfg config.PrinterConfig, stepTimeout time.Duration, log *logger.Logger) *Printer {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Printer{
		session:      session,
		targets:      session.pageTargets,
		timeout:      cfg.WindowTimeout,
		pollInterval: cfg.WindowPollInterval,
		stepTimeout:  stepTimeout,
		logger:       log,
	}
	if p.timeout <= 0 {
		p.timeout = 15 * time.Second
	}
	if p.pollInterval <= 0 {
		p.pollInterval = 300 * time.Millisecond
	}
	if p.stepTimeout <= 0 {
		p.stepTimeout = defaultStepTimeout
	}
	return p
}

// PrintReceipt waits for the preview window the portal opens after a
// recharge and confirms printing. Releasing an attached target closes it, so
// the preview is only released once Chrome has dropped it after spooling.
func (p *Printer) PrintReceipt(ctx context.Context) error {
	exclude := map[target.ID]bool{p.session.MainTarget(): true}
	defer p.restoreFocus(ctx)

	dialog, id, closeDialog, err := p.openDialog(ctx, exclude)
	if err != nil {
		return err
	}
	if err := dialog.ConfirmPrint(ctx); err != nil {
		closeDialog()
		return err
	}
	if err := p.waitTargetGone(ctx, id); err != nil {
		p.logger.Warnw("print_preview_still_open", "target", id, "error", err)
	}
	closeDialog()

	p.logger.Infow("receipt_printed")
	return nil
}

// ConfigureMargins opens a print preview from the main tab, selects value in
// the margins control and cancels, so later previews reuse the choice.
func (p *Printer) ConfigureMargins(ctx context.Context, value string) error {
	exclude, err := p.knownTargets(ctx)
	if err != nil {
		return fmt.Errorf("%w: list targets: %v", ErrPrintDialog, err)
	}
	defer p.restoreFocus(ctx)

	if err := p.session.Run(ctx, p.stepTimeout,
		chromedp.Evaluate(`setTimeout(() => window.print(), 0)`, nil),
	); err != nil {
		return stepError(ErrPrintDialog, "open_preview", err)
	}

	dialog, _, closeDialog, err := p.openDialog(ctx, exclude)
	if err != nil {
		return err
	}
	defer closeDialog()

	if err := dialog.SelectMarginOption(ctx, value); err != nil {
		return err
	}
	if err := dialog.Cancel(ctx); err != nil {
		return err
	}
	p.logger.Infow("print_margins_configured", "option", value)
	return nil
}

func (p *Printer) knownTargets(ctx context.Context) (map[target.ID]bool, error) {
	pages, err := p.targets(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[target.ID]bool, len(pages)+1)
	known[p.session.MainTarget()] = true
	for _, info := range pages {
		known[info.TargetID] = true
	}
	return known, nil
}

// waitForTarget polls the browser for a page target outside exclude.
func (p *Printer) waitForTarget(ctx context.Context, exclude map[target.ID]bool) (target.ID, error) {
	var id target.ID
	err := p.poll(ctx, func(pages []*target.Info) bool {
		var ok bool
		id, ok = pickNewTarget(pages, exclude)
		return ok
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// waitTargetGone polls until id is no longer among the page targets.
func (p *Printer) waitTargetGone(ctx context.Context, id target.ID) error {
	err := p.poll(ctx, func(pages []*target.Info) bool {
		for _, info := range pages {
			if info.TargetID == id {
				return false
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("preview %s: %w", id, err)
	}
	return nil
}

// poll lists the page targets every pollInterval until done accepts them,
// ctx ends or the printer timeout elapses. A failed listing counts as no match.
func (p *Printer) poll(ctx context.Context, done func([]*target.Info) bool) error {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		pages, err := p.targets(ctx)
		if err != nil {
			p.logger.Debugw("print_targets_unavailable", "error", err)
		} else if done(pages) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w after %s", ErrPrintWindowTimeout, p.timeout)
		case <-ticker.C:
		}
	}
}

func pickNewTarget(pages []*target.Info, exclude map[target.ID]bool) (target.ID, bool) {
	var fallback target.ID
	for _, info := range pages {
		if exclude[info.TargetID] {
			continue
		}
		if strings.HasPrefix(info.URL, "chrome://print") {
			return info.TargetID, true
		}
		if fallback == "" {
			fallback = info.TargetID
		}
	}
	return fallback, fallback != ""
}

func (p *Printer) openDialog(ctx context.Context, exclude map[target.ID]bool) (ports.PrintDialog, target.ID, func(), error) {
	id, err := p.waitForTarget(ctx, exclude)
	if err != nil {
		return nil, "", nil, err
	}
	tabCtx, cancel := p.session.attach(id)
	dialog := &chromePrintDialog{
		session: p.session,
		tabCtx:  tabCtx,
		timeout: p.stepTimeout,
	}
	if err := dialog.run(ctx, "attach", chromedp.WaitReady(previewApp, chromedp.ByQuery)); err != nil {
		cancel()
		return nil, "", nil, err
	}
	p.logger.Debugw("print_preview_attached", "target", id)
	return dialog, id, cancel, nil
}

func (p *Printer) restoreFocus(ctx context.Context) {
	if err := p.session.activateMain(ctx); err != nil {
		p.logger.Warnw("print_focus_restore_failed", "error", err)
	}
}

// chromePrintDialog is an attached print preview target.
type chromePrintDialog struct {
	session *Session
	tabCtx  context.Context
	timeout time.Duration
}

var _ ports.PrintDialog = (*chromePrintDialog)(nil)

func (d *chromePrintDialog) run(ctx context.Context, step string, actions ...chromedp.Action) error {
	return stepError(ErrPrintDialog, step, d.session.runIn(d.tabCtx, ctx, d.timeout, actions...))
}

func (d *chromePrintDialog) click(ctx context.Context, step, path string) error {
	return d.run(ctx, step,
		chromedp.WaitReady(path, chromedp.ByJSPath),
		chromedp.Evaluate(fmt.Sprintf("(%s).click()", path), nil),
	)
}

func (d *chromePrintDialog) SelectMarginOption(ctx context.Context, value string) error {
	if err := d.click(ctx, "expand_more_settings", moreSettingsPath); err != nil {
		return err
	}
	var selected string
	err := d.run(ctx, "select_margins",
		chromedp.WaitReady(marginSelectPath, chromedp.ByJSPath),
		chromedp.Evaluate(fmt.Sprintf(`(() => {
	const el = %s;
	el.value = %s;
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return el.value;
})()`, marginSelectPath, strconv.Quote(value)), &selected),
	)
	if err != nil {
		return err
	}
	if selected != value {
		return stepError(ErrPrintDialog, "select_margins", fmt.Errorf("option %q not available", value))
	}
	return nil
}

func (d *chromePrintDialog) ConfirmPrint(ctx context.Context) error {
	return d.click(ctx, "confirm_print", printButtonPath)
}

func (d *chromePrintDialog) Cancel(ctx context.Context) error {
	return d.click(ctx, "cancel", cancelButtonPath)
}
