// Package quizeditor drives the quiz editor page from end-to-end tests.
package quizeditor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Page elements.
var (
	QuizNameField     = Locator{Selector: "[ng-model='quiz.name']"}
	SaveButton        = Locator{Selector: "#save"}
	LoadMessage       = Locator{Selector: "#load-message"}
	SaveStatus        = Locator{Selector: "#save-message"}
	SaveError         = Locator{Selector: ".ng-binding", Binding: "saveError"}
	AddQuestionButton = Locator{Selector: "#add-question"}
	QuestionRows      = Locator{Selector: "[ng-repeat='question in quiz.questions']"}
)

const (
	defaultAnimationPause = 800 * time.Millisecond
	defaultPollInterval   = 100 * time.Millisecond
	defaultWaitTimeout    = 10 * time.Second
)

// ErrNoSuchQuestion is returned for question numbers below one.
var ErrNoSuchQuestion = errors.New("question numbers start at 1")

// Locator picks the Nth match (0-based) of Selector, searched inside Scope when set.
// Binding, when set, keeps only elements whose Angular binding expression mentions it.
type Locator struct {
	Scope    *Locator
	Selector string
	Binding  string
	Nth      int
}

// Within returns a locator for the first match of selector inside l.
func (l Locator) Within(selector string) Locator {
	scope := l
	return Locator{Scope: &scope, Selector: selector}
}

// Row returns the locator for the index-th (0-based) match of l.
func (l Locator) Row(index int) Locator {
	l.Nth = index
	return l
}

func (l Locator) String() string {
	sel := l.Selector
	if l.Binding != "" {
		sel += "{{" + l.Binding + "}}"
	}
	part := fmt.Sprintf("%s[%d]", sel, l.Nth)
	if l.Scope == nil {
		return part
	}
	return l.Scope.String() + " > " + part
}

// Driver performs browser actions. Locators that match nothing are errors, except for
// Visible, Text and Count, which report false, "" and 0.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, l Locator) error
	SendKeys(ctx context.Context, l Locator, text string) error
	Hover(ctx context.Context, l Locator) error
	DragAndDrop(ctx context.Context, from, to Locator) error
	Visible(ctx context.Context, l Locator) (bool, error)
	Text(ctx context.Context, l Locator) (string, error)
	// Count counts every match of l.Selector within l.Scope, ignoring l.Nth.
	Count(ctx context.Context, l Locator) (int, error)
}

// Page is the quiz editor page.
type Page struct {
	driver         Driver
	baseURL        string
	pollInterval   time.Duration
	waitTimeout    time.Duration
	animationPause time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option configures a Page.
type Option func(*Page)

// WithPollInterval sets how often waits re-check the page.
func WithPollInterval(d time.Duration) Option {
	return func(p *Page) { p.pollInterval = d }
}

// WithWaitTimeout bounds every wait.
func WithWaitTimeout(d time.Duration) Option {
	return func(p *Page) { p.waitTimeout = d }
}

// WithSleep replaces the pause used for animations.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Page) { p.sleep = sleep }
}

// NewPage returns the editor page of the app served at baseURL.
func NewPage(driver Driver, baseURL string, opts ...Option) *Page {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	p := &Page{
		driver:         driver,
		baseURL:        baseURL,
		pollInterval:   defaultPollInterval,
		waitTimeout:    defaultWaitTimeout,
		animationPause: defaultAnimationPause,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create opens the editor on a new quiz.
func (p *Page) Create(ctx context.Context) error {
	return p.driver.Navigate(ctx, p.baseURL+"create")
}

// Edit opens quiz id and waits until it has finished loading.
func (p *Page) Edit(ctx context.Context, id string) error {
	if err := p.driver.Navigate(ctx, p.baseURL+"edit/"+id); err != nil {
		return err
	}
	return p.waitUntil(ctx, "quiz loaded", func(ctx context.Context) (bool, error) {
		visible, err := p.driver.Visible(ctx, LoadMessage)
		return !visible, err
	})
}

// Save clicks save and waits for a save status or a save error.
func (p *Page) Save(ctx context.Context) error {
	if err := p.driver.Click(ctx, SaveButton); err != nil {
		return err
	}
	return p.waitUntil(ctx, "save finished", func(ctx context.Context) (bool, error) {
		status, err := p.driver.Text(ctx, SaveStatus)
		if err != nil || status != "" {
			return status != "", err
		}
		failure, err := p.driver.Text(ctx, SaveError)
		return failure != "", err
	})
}

// SaveStatus returns the save confirmation text.
func (p *Page) SaveStatus(ctx context.Context) (string, error) {
	return p.driver.Text(ctx, SaveStatus)
}

// SaveError returns the save error text.
func (p *Page) SaveError(ctx context.Context) (string, error) {
	return p.driver.Text(ctx, SaveError)
}

// SetQuizName types name into the quiz name field.
func (p *Page) SetQuizName(ctx context.Context, name string) error {
	return p.driver.SendKeys(ctx, QuizNameField, name)
}

// GetQuestion returns the question editor of question number (1-based).
func (p *Page) GetQuestion(number int) (Locator, error) {
	return questionPart(number, ".question-editor")
}

// GetAnswer returns the answer editor of question number (1-based).
func (p *Page) GetAnswer(number int) (Locator, error) {
	return questionPart(number, ".answer-editor")
}

// GetDragHandle returns the reorder handle of question number (1-based).
func (p *Page) GetDragHandle(number int) (Locator, error) {
	return questionPart(number, ".drag-handle")
}

func questionPart(number int, selector string) (Locator, error) {
	if number < 1 {
		return Locator{}, fmt.Errorf("question %d: %w", number, ErrNoSuchQuestion)
	}
	return QuestionRows.Row(number - 1).Within(selector), nil
}

// GetNumQuestions counts the questions on the page.
func (p *Page) GetNumQuestions(ctx context.Context) (int, error) {
	return p.driver.Count(ctx, QuestionRows)
}

// Type sends text to the element at l.
func (p *Page) Type(ctx context.Context, l Locator, text string) error {
	return p.driver.SendKeys(ctx, l, text)
}

// AddQuestion clicks add, then hovers the new last question so the button tooltip goes
// away, and waits out the add animation.
func (p *Page) AddQuestion(ctx context.Context) error {
	if err := p.driver.Click(ctx, AddQuestionButton); err != nil {
		return err
	}
	last, err := p.GetNumQuestions(ctx)
	if err != nil {
		return err
	}
	question, err := p.GetQuestion(last)
	if err != nil {
		return err
	}
	if err := p.driver.Hover(ctx, question); err != nil {
		return err
	}
	return p.sleep(ctx, p.animationPause)
}

// MoveQuestion drags question from onto the position of question to and waits out the
// reorder animation.
func (p *Page) MoveQuestion(ctx context.Context, from, to int) error {
	handle, err := p.GetDragHandle(from)
	if err != nil {
		return err
	}
	dest, err := p.GetQuestion(to)
	if err != nil {
		return err
	}
	if err := p.driver.DragAndDrop(ctx, handle, dest); err != nil {
		return err
	}
	return p.sleep(ctx, p.animationPause)
}

// waitUntil polls cond until it holds. Driver errors are retried until the wait times out.
func (p *Page) waitUntil(ctx context.Context, what string, cond func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, p.waitTimeout)
	defer cancel()

	var last error
	op := func() error {
		ok, err := cond(ctx)
		if err != nil {
			last = err
			return err
		}
		if !ok {
			return errNotYet
		}
		return nil
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(p.pollInterval), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if last != nil {
			return fmt.Errorf("wait for %s: %w (last error: %v)", what, err, last)
		}
		return fmt.Errorf("wait for %s: %w", what, err)
	}
	return nil
}

var errNotYet = errors.New("condition not met")

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
