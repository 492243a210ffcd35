package swipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/machtrueke/internal/likes"
	"github.com/and161185/machtrueke/internal/model"
)

type fakeMatcher struct {
	mu    sync.Mutex
	calls []model.ID
	err   error
	reply func(model.ID) model.Match
}

var _ Matcher = (*fakeMatcher)(nil)

func (f *fakeMatcher) CreateMatch(_ context.Context, id model.ID) (model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return model.Match{}, f.err
	}
	if f.reply != nil {
		return f.reply(id), nil
	}
	return model.Match{ID: model.ID("m-" + id), Product: model.MatchProduct{ID: id}}, nil
}

func cards(n int) []model.Card {
	out := make([]model.Card, n)
	for i := range out {
		out[i] = model.Card{
			ID:     model.ID(fmt.Sprintf("p%d", i)),
			Title:  fmt.Sprintf("card %d", i),
			Images: []string{fmt.Sprintf("https://img/%d.jpg", i)},
			Owner:  model.Owner{ID: "u2", Name: "Dobby"},
		}
	}
	return out
}

func newMachine(n int) (*Machine, *fakeMatcher, *likes.List) {
	fm := &fakeMatcher{}
	ll := likes.New()
	return NewMachine(NewDeck(cards(n)), fm, ll, nil), fm, ll
}

func activeID(t *testing.T, m *Machine) model.ID {
	t.Helper()
	v := m.View()
	require.NotNil(t, v.Card)
	return v.Card.ID
}

func TestRightSwipesConsumeQueue(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{1, 3, 7} {
		m, fm, ll := newMachine(n)
		for i := 0; i < n; i++ {
			out, err := m.Gesture(ctx, 20, 80, 150)
			require.NoError(t, err)
			require.Equal(t, Accept, out.Decision)
			require.NotNil(t, out.Match)
			require.NoError(t, m.Settle())
		}
		require.Len(t, fm.calls, n)
		require.True(t, m.View().Card == nil)
		require.Zero(t, m.View().Remaining)
		require.Equal(t, n, ll.Len())
	}
}

func TestBelowThresholdReturns(t *testing.T) {
	ctx := context.Background()
	m, fm, _ := newMachine(2)

	require.NoError(t, m.Drag(50))
	require.Equal(t, Dragging, m.View().State)
	require.Equal(t, 50.0, m.View().Offset)

	out, err := m.Release(ctx)
	require.NoError(t, err)
	require.Equal(t, Return, out.Decision)

	v := m.View()
	require.Equal(t, Returning, v.State)
	require.Zero(t, v.Offset)
	require.Equal(t, model.ID("p0"), v.Card.ID)

	require.NoError(t, m.Settle())
	require.Equal(t, Idle, m.View().State)
	require.Equal(t, model.ID("p0"), activeID(t, m))
	require.Empty(t, fm.calls)
}

func TestThresholdIsStrict(t *testing.T) {
	ctx := context.Background()
	m, fm, _ := newMachine(1)

	out, err := m.Gesture(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, Return, out.Decision)
	require.NoError(t, m.Settle())

	out, err = m.Gesture(ctx, -100)
	require.NoError(t, err)
	require.Equal(t, Return, out.Decision)
	require.Empty(t, fm.calls)
}

func TestLeftSwipeIsLocal(t *testing.T) {
	ctx := context.Background()
	m, fm, ll := newMachine(2)

	out, err := m.Gesture(ctx, -30, -101)
	require.NoError(t, err)
	require.Equal(t, Reject, out.Decision)
	require.Equal(t, model.ID("p0"), out.Card.ID)
	require.Equal(t, CommittingLeft, m.View().State)

	// the card leaves only once the animation is done
	require.Equal(t, model.ID("p0"), activeID(t, m))
	require.NoError(t, m.Settle())
	require.Equal(t, model.ID("p1"), activeID(t, m))
	require.Equal(t, Idle, m.View().State)
	require.Zero(t, m.View().Offset)

	require.Empty(t, fm.calls)
	require.Zero(t, ll.Len())
}

func TestMatchFailureKeepsCard(t *testing.T) {
	ctx := context.Background()
	m, fm, ll := newMachine(2)
	boom := errors.New("HTTP 500")
	fm.err = boom

	out, err := m.Gesture(ctx, 150)
	require.ErrorIs(t, err, boom)
	require.Equal(t, None, out.Decision)

	v := m.View()
	require.Equal(t, Idle, v.State)
	require.Zero(t, v.Offset)
	require.False(t, v.AnimatingOut)
	require.Equal(t, model.ID("p0"), v.Card.ID)
	require.Equal(t, 2, v.Remaining)
	require.Zero(t, ll.Len())

	fm.err = nil
	_, err = m.Key(ctx, KeyRight)
	require.NoError(t, err)
	require.NoError(t, m.Settle())
	require.Equal(t, model.ID("p1"), activeID(t, m))
}

func TestKeysBypassDrag(t *testing.T) {
	ctx := context.Background()
	m, fm, _ := newMachine(3)

	out, err := m.Key(ctx, KeyRight)
	require.NoError(t, err)
	require.Equal(t, Accept, out.Decision)
	require.Equal(t, CommittingRight, m.View().State)
	require.True(t, m.View().AnimatingOut)
	require.NoError(t, m.Settle())

	out, err = m.Key(ctx, KeyLeft)
	require.NoError(t, err)
	require.Equal(t, Reject, out.Decision)
	require.NoError(t, m.Settle())

	require.Equal(t, []model.ID{"p0"}, fm.calls)
	require.Equal(t, model.ID("p2"), activeID(t, m))
}

func TestInputRefusedWhileAnimatingOut(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMachine(2)

	_, err := m.Key(ctx, KeyLeft)
	require.NoError(t, err)

	require.ErrorIs(t, m.Drag(10), ErrBusy)
	_, err = m.Key(ctx, KeyRight)
	require.ErrorIs(t, err, ErrBusy)
	_, err = m.Release(ctx)
	require.ErrorIs(t, err, ErrBusy)
}

func TestInputRefusedWhileMatchInFlight(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	fm := &fakeMatcher{reply: func(id model.ID) model.Match {
		close(started)
		<-release
		return model.Match{Product: model.MatchProduct{ID: id}}
	}}
	m := NewMachine(NewDeck(cards(2)), fm, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.Key(ctx, KeyRight)
		done <- err
	}()
	<-started
	require.Equal(t, CommittingRight, m.View().State)
	require.ErrorIs(t, m.Drag(200), ErrBusy)
	close(release)
	require.NoError(t, <-done)
}

func TestReleaseWithoutDragIsIgnored(t *testing.T) {
	m, fm, _ := newMachine(1)
	out, err := m.Release(context.Background())
	require.NoError(t, err)
	require.Equal(t, None, out.Decision)
	require.Equal(t, Idle, m.View().State)
	require.Empty(t, fm.calls)
}

func TestDragDuringReturnRestartsDrag(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMachine(1)
	_, err := m.Gesture(ctx, 40)
	require.NoError(t, err)
	require.Equal(t, Returning, m.View().State)

	require.NoError(t, m.Drag(-120))
	out, err := m.Release(ctx)
	require.NoError(t, err)
	require.Equal(t, Reject, out.Decision)
}

func TestExhaustedQueue(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMachine(1)
	_, err := m.Key(ctx, KeyLeft)
	require.NoError(t, err)
	require.NoError(t, m.Settle())

	require.ErrorIs(t, m.Drag(10), ErrQueueEmpty)
	_, err = m.Release(ctx)
	require.ErrorIs(t, err, ErrQueueEmpty)
	_, err = m.Key(ctx, KeyRight)
	require.ErrorIs(t, err, ErrQueueEmpty)
	require.ErrorIs(t, m.Settle(), ErrQueueEmpty)

	m.Replenish([]model.Card{{ID: "fresh"}})
	require.Equal(t, model.ID("fresh"), activeID(t, m))
	require.NoError(t, m.Drag(10))
}

func TestMatchCompletedFromCard(t *testing.T) {
	ctx := context.Background()
	fm := &fakeMatcher{reply: func(model.ID) model.Match { return model.Match{} }}
	ll := likes.New()
	m := NewMachine(NewDeck(cards(1)), fm, ll, nil)
	at := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	m.now = func() time.Time { return at }

	out, err := m.Key(ctx, KeyRight)
	require.NoError(t, err)
	require.NotEmpty(t, out.Match.ID)
	require.Equal(t, model.ID("p0"), out.Match.Product.ID)
	require.Equal(t, "card 0", out.Match.Product.Title)
	require.Equal(t, "https://img/0.jpg", out.Match.Product.Cover)
	require.Equal(t, "Dobby", out.Match.Owner.Name)
	require.Equal(t, at, out.Match.CreatedAt)

	got := ll.All()
	require.Len(t, got, 1)
	require.Equal(t, out.Match.ID, got[0].ID)
}

func TestRepeatedMatchUpsertsOnce(t *testing.T) {
	ctx := context.Background()
	fm := &fakeMatcher{}
	ll := likes.New()
	deck := NewDeck([]model.Card{{ID: "p1", Title: "a"}, {ID: "p1", Title: "a"}})
	m := NewMachine(deck, fm, ll, nil)

	for i := 0; i < 2; i++ {
		_, err := m.Key(ctx, KeyRight)
		require.NoError(t, err)
		require.NoError(t, m.Settle())
	}
	require.Len(t, fm.calls, 2)
	require.Equal(t, 1, ll.Len())
}

func TestBadges(t *testing.T) {
	tests := []struct {
		offset, match, reject float64
	}{
		{0, 0, 0},
		{50, 0.5, 0},
		{-25, 0, 0.25},
		{100, 1, 0},
		{250, 1, 0},
		{-400, 0, 1},
	}
	for _, tt := range tests {
		mb, rb := Badges(tt.offset)
		if mb != tt.match || rb != tt.reject {
			t.Fatalf("Badges(%v) = %v, %v; want %v, %v", tt.offset, mb, rb, tt.match, tt.reject)
		}
	}
}

func TestViewBadgesFollowOffset(t *testing.T) {
	m, _, _ := newMachine(1)
	require.NoError(t, m.Drag(-60))
	v := m.View()
	require.Zero(t, v.MatchBadge)
	require.InDelta(t, 0.6, v.RejectBadge, 1e-9)
}

func TestStringers(t *testing.T) {
	require.Equal(t, "committing-right", CommittingRight.String())
	require.Equal(t, "returning", Returning.String())
	require.Equal(t, "match", Accept.String())
	require.Equal(t, "skip", Reject.String())
}
