// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package authoring

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

// Step is a stage of the authoring wizard.
type Step int

const (
	StepName Step = iota + 1
	StepDescription
	StepQuestions
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepDescription:
		return "description"
	case StepQuestions:
		return "questions"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	// ErrBusy is returned when a wizard call is made while another one is
	// still outstanding.
	ErrBusy = errors.New("another request is still in progress")

	// ErrAlreadyCollected is returned by Collect once documents are collected.
	ErrAlreadyCollected = errors.New("documents already collected")

	// ErrWrongStep is returned when an action does not apply to the current step.
	ErrWrongStep = errors.New("action not available at this step")
)

// Collection simulation constants.
const (
	collectMin       = 500
	collectSpread    = 1000
	collectBatch     = 25
	primaryShare     = 0.6
	freeFullTextRate = 0.4
	distributionSpan = 10
	maxPerYear       = 100

	defaultCollectTick = 50 * time.Millisecond
)

// Generator is the part of the authoring service the wizard needs.
type Generator interface {
	GenerateQuestions(ctx context.Context, text string) ([]string, error)
	GenerateSearchExpression(ctx context.Context, text string, answers map[string]string) (string, error)
	GenerateSynonyms(ctx context.Context, req SynonymRequest) ([]SynonymGroup, error)
}

// Saver persists a finished query.
type Saver interface {
	Save(ctx context.Context, q types.SavedQuery) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Progress receives collection updates: the counts so far and the target.
type Progress func(collected types.CollectedDocuments, total int)

// WizardConfig wires a Wizard to its collaborators. Rand, Sleep and Now
// default to a random PCG source, a real timer and time.Now.
type WizardConfig struct {
	Generator   Generator
	Estimator   Estimator
	Logger      *zap.Logger
	Rand        *rand.Rand
	Sleep       Sleeper
	Now         func() time.Time
	CollectTick time.Duration
}

// Wizard walks a user through authoring a saved query: name, research
// question, clarifying answers, then review of the generated search
// expression with optional synonyms and a simulated document collection.
//
// Only one network call or collection runs at a time; a second one gets
// ErrBusy. A failed call leaves the wizard on the same step so the action
// can be retried.
type Wizard struct {
	gen    Generator
	est    Estimator
	logger *zap.Logger
	sleep  Sleeper
	now    func() time.Time
	tick   time.Duration

	busy atomic.Bool

	mu          sync.Mutex
	rng         *rand.Rand
	step        Step
	name        string
	description string
	questions   []string
	answers     map[string]string
	expression  string
	estimate    *int
	synonyms    []SynonymGroup
	collected   types.CollectedDocuments
	total       int
	isCollected bool
}

// NewWizard returns a wizard at StepName.
func NewWizard(cfg WizardConfig) *Wizard {
	w := &Wizard{
		gen:    cfg.Generator,
		est:    cfg.Estimator,
		logger: cfg.Logger,
		rng:    cfg.Rand,
		sleep:  cfg.Sleep,
		now:    cfg.Now,
		tick:   cfg.CollectTick,
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if w.sleep == nil {
		w.sleep = sleepContext
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.tick <= 0 {
		w.tick = defaultCollectTick
	}
	w.reset()
	return w
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// acquire takes the busy guard.
func (w *Wizard) acquire() error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (w *Wizard) release() { w.busy.Store(false) }

// Busy reports whether a call is outstanding.
func (w *Wizard) Busy() bool { return w.busy.Load() }

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// SetName sets the query name.
func (w *Wizard) SetName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name = name
}

// SetDescription sets the free-text research question.
func (w *Wizard) SetDescription(description string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.description = description
}

// Questions returns the clarifying questions in order.
func (w *Wizard) Questions() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.questions)
}

// SetAnswer records the answer to one of the generated questions.
func (w *Wizard) SetAnswer(question, answer string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.questions, question) {
		return fmt.Errorf("unknown question %q", question)
	}
	w.answers[question] = answer
	return nil
}

// Answers returns a copy of the answers keyed by question.
func (w *Wizard) Answers() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.answers)
}

// Expression returns the current search expression.
func (w *Wizard) Expression() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expression
}

// SetExpression replaces the search expression with a user edit.
func (w *Wizard) SetExpression(expr string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expression = expr
}

// Estimate returns the estimated result count, if the estimate succeeded.
func (w *Wizard) Estimate() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.estimate == nil {
		return 0, false
	}
	return *w.estimate, true
}

// Next advances one step. Leaving StepDescription generates the clarifying
// questions; leaving StepQuestions generates the search expression and asks
// for an estimate. An estimate failure is logged and leaves no estimate;
// any other failure leaves the step unchanged.
func (w *Wizard) Next(ctx context.Context) error {
	if err := w.acquire(); err != nil {
		return err
	}
	defer w.release()

	w.mu.Lock()
	step := w.step
	description := w.description
	answers := maps.Clone(w.answers)
	w.mu.Unlock()

	switch step {
	case StepName:
		w.setStep(StepDescription)
		return nil

	case StepDescription:
		questions, err := w.gen.GenerateQuestions(ctx, description)
		if err != nil {
			return fmt.Errorf("generating questions: %w", err)
		}
		w.mu.Lock()
		w.questions = questions
		w.answers = make(map[string]string, len(questions))
		for _, q := range questions {
			w.answers[q] = ""
		}
		w.step = StepQuestions
		w.mu.Unlock()
		return nil

	case StepQuestions:
		expr, err := w.gen.GenerateSearchExpression(ctx, description, answers)
		if err != nil {
			return fmt.Errorf("generating search expression: %w", err)
		}
		expr = CleanExpression(expr)

		var estimate *int
		if w.est != nil {
			n, err := w.est.EstimateCount(ctx, expr)
			if err != nil {
				w.logger.Warn("estimating documents failed", zap.Error(err))
			} else {
				estimate = &n
			}
		}

		w.mu.Lock()
		w.expression = expr
		w.estimate = estimate
		w.synonyms = nil
		w.step = StepReview
		w.mu.Unlock()
		return nil

	default:
		return fmt.Errorf("%w: %s is the last step", ErrWrongStep, step)
	}
}

func (w *Wizard) setStep(s Step) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = s
}

// Synonyms asks the service for synonym groups for the current expression.
// On failure the previous groups are cleared.
func (w *Wizard) Synonyms(ctx context.Context) ([]SynonymGroup, error) {
	if err := w.acquire(); err != nil {
		return nil, err
	}
	defer w.release()

	w.mu.Lock()
	if w.step != StepReview {
		w.mu.Unlock()
		return nil, ErrWrongStep
	}
	req := SynonymRequest{
		Description: w.description,
		Questions:   slices.Clone(w.questions),
		Answers:     maps.Clone(w.answers),
		Query:       w.expression,
	}
	w.mu.Unlock()

	groups, err := w.gen.GenerateSynonyms(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.synonyms = nil
		return nil, fmt.Errorf("generating synonyms: %w", err)
	}
	w.synonyms = groups
	return slices.Clone(groups), nil
}

// SynonymGroups returns the groups from the last successful Synonyms call.
func (w *Wizard) SynonymGroups() []SynonymGroup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.synonyms)
}

// ApplySynonym appends " OR synonym" to the search expression.
func (w *Wizard) ApplySynonym(synonym string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expression += " OR " + synonym
	return w.expression
}

// Collect simulates gathering documents for the expression. The target is
// drawn uniformly from [500, 1500); progress advances in batches of 25 split
// 60/40 between the primary and secondary source, pausing one tick between
// batches. Collecting twice returns ErrAlreadyCollected. If ctx ends the
// partial counts are discarded.
func (w *Wizard) Collect(ctx context.Context, progress Progress) error {
	if err := w.acquire(); err != nil {
		return err
	}
	defer w.release()

	w.mu.Lock()
	if w.step != StepReview {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.isCollected {
		w.mu.Unlock()
		return ErrAlreadyCollected
	}
	total := collectMin + w.rng.IntN(collectSpread)
	w.total = total
	w.mu.Unlock()

	var counts types.CollectedDocuments
	for i := 0; i <= total; i += collectBatch {
		primary := int(float64(i) * primaryShare)
		counts = types.CollectedDocuments{Primary: primary, Secondary: i - primary}
		w.mu.Lock()
		w.collected = counts
		w.mu.Unlock()
		if progress != nil {
			progress(counts, total)
		}
		if err := w.sleep(ctx, w.tick); err != nil {
			w.mu.Lock()
			w.collected = types.CollectedDocuments{}
			w.total = 0
			w.mu.Unlock()
			return fmt.Errorf("collecting documents: %w", err)
		}
	}

	w.mu.Lock()
	w.isCollected = true
	w.mu.Unlock()
	w.logger.Info("collected documents",
		zap.Int("total", total),
		zap.Int("primary", counts.Primary),
		zap.Int("secondary", counts.Secondary),
	)
	return nil
}

// Collected returns the counts gathered so far, the collection target and
// whether collection finished.
func (w *Wizard) Collected() (types.CollectedDocuments, int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected, w.total, w.isCollected
}

// Build assembles the saved query from the wizard state. It is available
// at StepReview, with or without a finished collection.
func (w *Wizard) Build() (types.SavedQuery, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepReview {
		return types.SavedQuery{}, ErrWrongStep
	}

	year := w.now().Year()
	dist := make(map[int]int, distributionSpan)
	for y := year - distributionSpan + 1; y <= year; y++ {
		dist[y] = w.rng.IntN(maxPerYear)
	}

	return types.SavedQuery{
		ID:                 uuid.NewString(),
		Name:               w.name,
		Description:        w.description,
		Questions:          slices.Clone(w.questions),
		Answers:            maps.Clone(w.answers),
		SearchExpression:   w.expression,
		CollectedDocuments: w.collected,
		PaperCount:         w.total,
		FreeFullTextCount:  int(float64(w.total) * freeFullTextRate),
		YearDistribution:   dist,
	}, nil
}

// Save builds the query, hands it to s and resets the wizard. On failure
// the wizard keeps its state.
func (w *Wizard) Save(ctx context.Context, s Saver) (types.SavedQuery, error) {
	q, err := w.Build()
	if err != nil {
		return types.SavedQuery{}, err
	}
	if err := s.Save(ctx, q); err != nil {
		return types.SavedQuery{}, err
	}
	w.Reset()
	return q, nil
}

// Reset returns the wizard to StepName with empty state.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

func (w *Wizard) reset() {
	w.step = StepName
	w.name = ""
	w.description = ""
	w.questions = nil
	w.answers = map[string]string{}
	w.expression = ""
	w.estimate = nil
	w.synonyms = nil
	w.collected = types.CollectedDocuments{}
	w.total = 0
	w.isCollected = false
}
