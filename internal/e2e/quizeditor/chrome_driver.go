package quizeditor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// dragSteps is how many intermediate moves a drag makes; sortable lists ignore jumps.
const dragSteps = 10

// ChromeDriver drives a Chrome tab over the DevTools protocol.
type ChromeDriver struct {
	tab context.Context
}

// NewChromeDriver starts a headless Chrome, or attaches to the one at remoteURL when set
// (a DevTools websocket URL such as ws://127.0.0.1:9222). cancel closes the tab and the
// browser it started.
func NewChromeDriver(ctx context.Context, remoteURL string) (*ChromeDriver, context.CancelFunc, error) {
	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if remoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, remoteURL)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	}
	tab, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}
	// the first Run starts the browser and must use the tab context itself
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start chrome: %w", err)
	}
	return &ChromeDriver{tab: tab}, cancel, nil
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) Click(ctx context.Context, l Locator) error {
	p, err := d.center(ctx, l)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.MouseClickXY(p.X, p.Y))
}

// SendKeys clicks into the element and types text, which also works for contenteditable
// editors.
func (d *ChromeDriver) SendKeys(ctx context.Context, l Locator, text string) error {
	if err := d.Click(ctx, l); err != nil {
		return err
	}
	return d.run(ctx, chromedp.KeyEvent(text))
}

func (d *ChromeDriver) Hover(ctx context.Context, l Locator) error {
	p, err := d.center(ctx, l)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.MouseEvent(input.MouseMoved, p.X, p.Y))
}

func (d *ChromeDriver) DragAndDrop(ctx context.Context, from, to Locator) error {
	src, err := d.center(ctx, from)
	if err != nil {
		return err
	}
	dst, err := d.center(ctx, to)
	if err != nil {
		return err
	}

	actions := []chromedp.Action{
		chromedp.MouseEvent(input.MouseMoved, src.X, src.Y),
		chromedp.MouseEvent(input.MousePressed, src.X, src.Y, chromedp.ButtonLeft, chromedp.ClickCount(1)),
	}
	for i := 1; i <= dragSteps; i++ {
		f := float64(i) / dragSteps
		x := src.X + (dst.X-src.X)*f
		y := src.Y + (dst.Y-src.Y)*f
		actions = append(actions, chromedp.MouseEvent(input.MouseMoved, x, y, chromedp.ButtonLeft))
	}
	actions = append(actions, chromedp.MouseEvent(input.MouseReleased, dst.X, dst.Y, chromedp.ButtonLeft, chromedp.ClickCount(1)))
	return d.run(ctx, actions...)
}

func (d *ChromeDriver) Visible(ctx context.Context, l Locator) (bool, error) {
	var visible bool
	expr := fmt.Sprintf(`(function (el) {
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.display === "none" || style.visibility === "hidden") return false;
	return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})(%s)`, resolveJS(l))
	err := d.run(ctx, chromedp.Evaluate(expr, &visible))
	return visible, err
}

func (d *ChromeDriver) Text(ctx context.Context, l Locator) (string, error) {
	var text string
	expr := fmt.Sprintf(`(function (el) { return el ? el.innerText.trim() : ""; })(%s)`, resolveJS(l))
	err := d.run(ctx, chromedp.Evaluate(expr, &text))
	return text, err
}

func (d *ChromeDriver) Count(ctx context.Context, l Locator) (int, error) {
	scope := "document"
	if l.Scope != nil {
		scope = resolveJS(*l.Scope)
	}
	step, _ := json.Marshal(resolveStep{Selector: l.Selector, Binding: l.Binding})
	var n int
	expr := fmt.Sprintf(`(function (root, step) { return root ? (%s)(root, step).length : 0; })(%s, %s)`,
		matchJS, scope, step)
	err := d.run(ctx, chromedp.Evaluate(expr, &n))
	return n, err
}

type point struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// center scrolls the element into view and returns its midpoint in viewport coordinates.
func (d *ChromeDriver) center(ctx context.Context, l Locator) (point, error) {
	var p point
	expr := fmt.Sprintf(`(function (el) {
	if (!el) return {found: false, x: 0, y: 0};
	el.scrollIntoView({block: "center", inline: "center"});
	const r = el.getBoundingClientRect();
	return {found: true, x: r.left + r.width / 2, y: r.top + r.height / 2};
})(%s)`, resolveJS(l))
	if err := d.run(ctx, chromedp.Evaluate(expr, &p)); err != nil {
		return point{}, err
	}
	if !p.Found {
		return point{}, fmt.Errorf("no element at %s", l)
	}
	return p, nil
}

// run executes actions on the tab, bounded by ctx's deadline.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx := d.tab
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(d.tab, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

type resolveStep struct {
	Selector string `json:"sel"`
	Nth      int    `json:"nth"`
	Binding  string `json:"binding,omitempty"`
}

// matchJS lists the elements under root matching step, filtered by Angular binding when the
// step names one. Bindings are read from the debug data Angular keeps on .ng-binding nodes.
const matchJS = `function (root, step) {
	const found = Array.from(root.querySelectorAll(step.sel));
	if (!step.binding) return found;
	return found.filter(function (el) {
		if (!window.angular) return false;
		const data = angular.element(el).data("$binding");
		if (!data) return false;
		return [].concat(data).some(function (b) {
			const exp = typeof b === "string" ? b : (b && b.exp) || "";
			return exp.indexOf(step.binding) !== -1;
		});
	});
}`

// resolveJS returns a JS expression evaluating to the element l points at, or null.
func resolveJS(l Locator) string {
	var steps []resolveStep
	for cur := &l; cur != nil; cur = cur.Scope {
		steps = append([]resolveStep{{Selector: cur.Selector, Nth: cur.Nth, Binding: cur.Binding}}, steps...)
	}
	data, _ := json.Marshal(steps)
	return fmt.Sprintf(`(function (steps) {
	const match = %s;
	let el = document;
	for (const step of steps) {
		el = match(el, step)[step.nth];
		if (!el) return null;
	}
	return el;
})(%s)`, matchJS, data)
}
