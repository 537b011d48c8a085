package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/logger"
)

const (
	paymentSelector   = "#tipoPg"
	pixOptionValue    = "1"
	cardField         = "#nrcartaocredito"
	addedAmountField  = "#acrescido"
	paidAmountField   = "#pagocredito"
	validateButton    = "//button[text()='Validar']"
	confirmButton     = "#btn-maisCredito"
	payerNameSelector = "div.col-md-4 > span"
)

// actionRunner runs chromedp actions on the main tab.
type actionRunner func(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error

// Portal fills the recharge form of the portal on the session's main tab.
type Portal struct {
	run         actionRunner
	stepTimeout time.Duration
	logger      *logger.Logger
}

func NewPortal(session *Session, stepTimeout time.Duration, log *logger.Logger) *Portal {
	if log == nil {
		log = logger.NewNop()
	}
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	return &Portal{run: session.Run, stepTimeout: stepTimeout, logger: log}
}

func (p *Portal) step(ctx context.Context, name string, actions ...chromedp.Action) error {
	return stepError(ErrRechargeFailed, name, p.run(ctx, p.stepTimeout, actions...))
}

// Execute submits one recharge. The confirm button is clicked from a timer so
// the dialog it triggers does not block the call.
func (p *Portal) Execute(ctx context.Context, req domain.RechargeRequest) (domain.RechargeResult, error) {
	var result domain.RechargeResult
	amount := req.AmountText()

	if req.PaymentMethod.IsPix() {
		if err := p.step(ctx, "payment_method",
			chromedp.WaitReady(paymentSelector, chromedp.ByQuery),
			chromedp.Evaluate(selectValueScript(paymentSelector, pixOptionValue), nil),
		); err != nil {
			return result, err
		}
	}

	if err := p.step(ctx, "card_number",
		chromedp.WaitReady(cardField, chromedp.ByQuery),
		chromedp.Clear(cardField, chromedp.ByQuery),
		chromedp.SendKeys(cardField, req.CardNumber, chromedp.ByQuery),
	); err != nil {
		return result, err
	}

	if err := p.step(ctx, "amount",
		chromedp.WaitReady(addedAmountField, chromedp.ByQuery),
		chromedp.Clear(addedAmountField, chromedp.ByQuery),
		chromedp.SendKeys(addedAmountField, amount, chromedp.ByQuery),
		chromedp.WaitReady(paidAmountField, chromedp.ByQuery),
		chromedp.Clear(paidAmountField, chromedp.ByQuery),
		chromedp.SendKeys(paidAmountField, amount, chromedp.ByQuery),
	); err != nil {
		return result, err
	}

	if err := p.step(ctx, "validate",
		chromedp.WaitReady(validateButton, chromedp.BySearch),
		chromedp.Click(validateButton, chromedp.BySearch),
	); err != nil {
		return result, err
	}

	if err := p.step(ctx, "confirm_ready",
		chromedp.WaitReady(confirmButton, chromedp.ByQuery),
	); err != nil {
		return result, err
	}

	result.PayerName = strings.TrimSpace(req.PayerName)
	if result.PayerName == "" {
		var html string
		if err := p.step(ctx, "payer_name", chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
			p.logger.Warnw("portal_payer_name_unreadable", "error", err)
			result.PayerName = domain.UnknownPayer
		} else {
			result.PayerName = ScrapePayerName(html)
		}
	}

	if err := p.step(ctx, "confirm",
		chromedp.Evaluate(deferredClickScript(confirmButton), nil),
	); err != nil {
		return result, err
	}

	p.logger.Infow("portal_recharge_confirmed",
		"card", req.CardNumber,
		"amount", amount,
		"payment_method", req.PaymentMethod,
		"payer", result.PayerName,
	)
	return result, nil
}

// ScrapePayerName reads the payer label the portal shows after validation.
func ScrapePayerName(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.UnknownPayer
	}
	name := domain.NormalizePayerName(doc.Find(payerNameSelector).First().Text())
	if name == "" {
		return domain.UnknownPayer
	}
	return name
}

func selectValueScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) { throw new Error("missing " + %q); }
	el.value = %q;
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return el.value;
})()`, selector, selector, value)
}

func deferredClickScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) { throw new Error("missing " + %q); }
	setTimeout(() => el.click(), 100);
	return true;
})()`, selector, selector)
}
