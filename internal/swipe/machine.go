// Package swipe turns drag and keyboard input into accept/reject decisions
// over a queue of product cards.
//
// Per card the machine moves idle → dragging → {committing-right |
// committing-left | returning} → idle. A card leaves the queue only when
// its outgoing animation is reported done through Settle.
package swipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/likes"
	"github.com/and161185/machtrueke/internal/model"
)

// Threshold is the horizontal distance, in pixels, a drag must exceed to commit.
const Threshold = 100.0

var (
	// ErrQueueEmpty is returned for every event once the deck is exhausted.
	ErrQueueEmpty = errors.New("swipe: queue is empty")
	// ErrBusy is returned for input arriving while a card is committing.
	ErrBusy = errors.New("swipe: decision in progress")
)

// State of the active card.
type State int

const (
	Idle State = iota
	Dragging
	CommittingRight
	CommittingLeft
	Returning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case CommittingRight:
		return "committing-right"
	case CommittingLeft:
		return "committing-left"
	case Returning:
		return "returning"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Key is a keyboard shortcut.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
)

// Decision is what a release or key press resolved to.
type Decision int

const (
	None Decision = iota
	Accept
	Reject
	Return
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "match"
	case Reject:
		return "skip"
	case Return:
		return "return"
	}
	return "none"
}

// Outcome reports a resolved gesture. Match is set for accepted cards.
type Outcome struct {
	Decision Decision
	Card     model.Card
	Match    *model.Match
}

// Matcher records a positive decision on the backend.
type Matcher interface {
	CreateMatch(ctx context.Context, productID model.ID) (model.Match, error)
}

// View is a point-in-time picture of the machine for rendering.
type View struct {
	State        State
	Offset       float64
	AnimatingOut bool
	Card         *model.Card
	Remaining    int
	MatchBadge   float64
	RejectBadge  float64
}

// Machine is the swipe state machine. Safe for concurrent use; the match
// call runs without holding the lock and other input is refused meanwhile.
type Machine struct {
	matcher Matcher
	matches *likes.List
	log     *zap.Logger
	now     func() time.Time

	mu           sync.Mutex
	deck         *Deck
	state        State
	offset       float64
	animatingOut bool
}

// NewMachine builds a machine over deck. matches may be nil.
func NewMachine(deck *Deck, matcher Matcher, matches *likes.List, log *zap.Logger) *Machine {
	if deck == nil {
		deck = NewDeck(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{deck: deck, matcher: matcher, matches: matches, log: log, now: time.Now}
}

// View returns the current rendering state.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{
		State:        m.state,
		Offset:       m.offset,
		AnimatingOut: m.animatingOut,
		Remaining:    m.deck.Remaining(),
	}
	if c, ok := m.deck.Active(); ok {
		v.Card = &c
	}
	v.MatchBadge, v.RejectBadge = Badges(m.offset)
	return v
}

// Drag moves the active card; dx is the horizontal distance from where the
// pointer went down.
func (m *Machine) Drag(dx float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.acceptInput(); err != nil {
		return err
	}
	m.state = Dragging
	m.offset = dx
	return nil
}

// Release ends a drag and resolves it against Threshold. A release without
// a drag is ignored.
func (m *Machine) Release(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	if err := m.acceptInput(); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	if m.state != Dragging {
		m.mu.Unlock()
		return Outcome{}, nil
	}
	switch {
	case m.offset > Threshold:
		return m.commitRight(ctx)
	case m.offset < -Threshold:
		return m.commitLeft(), nil
	}
	card, _ := m.deck.Active()
	m.state = Returning
	m.offset = 0
	m.mu.Unlock()
	return Outcome{Decision: Return, Card: card}, nil
}

// Key applies a keyboard shortcut. It commits exactly like a drag past the
// threshold without going through Dragging.
func (m *Machine) Key(ctx context.Context, k Key) (Outcome, error) {
	m.mu.Lock()
	if err := m.acceptInput(); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	if k == KeyRight {
		return m.commitRight(ctx)
	}
	return m.commitLeft(), nil
}

// Settle reports that the current animation finished. After an outgoing
// animation the queue advances; after a return the card stays.
func (m *Machine) Settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deck.Exhausted() {
		return ErrQueueEmpty
	}
	switch {
	case m.animatingOut:
		m.deck.advance()
		m.reset()
	case m.state == Returning:
		m.reset()
	}
	return nil
}

// Replenish appends cards to the queue. Input is accepted again once the
// queue is not empty.
func (m *Machine) Replenish(cards []model.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deck.Replenish(cards)
	if !m.animatingOut && m.state != CommittingRight {
		m.reset()
	}
}

// Gesture replays a finite drag: every value is a position update, and the
// sequence ends with a release.
func (m *Machine) Gesture(ctx context.Context, dxs ...float64) (Outcome, error) {
	for _, dx := range dxs {
		if err := m.Drag(dx); err != nil {
			return Outcome{}, err
		}
	}
	return m.Release(ctx)
}

// acceptInput must be called with mu held.
func (m *Machine) acceptInput() error {
	if m.deck.Exhausted() {
		return ErrQueueEmpty
	}
	if m.animatingOut || m.state == CommittingRight || m.state == CommittingLeft {
		return ErrBusy
	}
	return nil
}

func (m *Machine) reset() {
	m.state = Idle
	m.offset = 0
	m.animatingOut = false
}

// commitLeft is a local skip. Called with mu held; unlocks it.
func (m *Machine) commitLeft() Outcome {
	defer m.mu.Unlock()
	card, _ := m.deck.Active()
	m.state = CommittingLeft
	m.offset = -offscreen
	m.animatingOut = true
	m.log.Debug("swipe: skip", zap.String("card", card.ID.String()))
	return Outcome{Decision: Reject, Card: card}
}

// offscreen is the offset a card is animated to when it leaves.
const offscreen = 1000.0

// commitRight records the match and animates the card out. On failure the
// card snaps back and stays active. Called with mu held; unlocks it.
func (m *Machine) commitRight(ctx context.Context) (Outcome, error) {
	card, _ := m.deck.Active()
	m.state = CommittingRight
	m.mu.Unlock()

	match, err := m.matcher.CreateMatch(ctx, card.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.reset()
		m.log.Debug("swipe: match failed", zap.String("card", card.ID.String()), zap.Error(err))
		return Outcome{Card: card}, fmt.Errorf("create match: %w", err)
	}
	match = m.complete(match, card)
	if m.matches != nil {
		m.matches.Upsert(match)
	}
	m.offset = offscreen
	m.animatingOut = true
	m.log.Debug("swipe: match",
		zap.String("card", card.ID.String()),
		zap.String("match", match.ID.String()),
	)
	return Outcome{Decision: Accept, Card: card, Match: &match}, nil
}

// complete fills what the backend left out with what is known locally.
func (m *Machine) complete(match model.Match, card model.Card) model.Match {
	if match.ID == "" {
		if id, err := uuid.NewV4(); err == nil {
			match.ID = model.ID(id.String())
		}
	}
	if match.Product.ID == "" {
		match.Product.ID = card.ID
	}
	if match.Product.Title == "" {
		match.Product.Title = card.Title
	}
	if match.Product.Cover == "" {
		match.Product.Cover = card.Cover()
	}
	if match.Owner.ID == "" && match.Owner.Name == "" {
		match.Owner = card.Owner
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = m.now().UTC()
	}
	return match
}

// Badges returns the opacities of the match and reject badges for offset,
// each in [0, 1] and saturating at Threshold.
func Badges(offset float64) (match, reject float64) {
	return clamp01(offset / Threshold), clamp01(-offset / Threshold)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
