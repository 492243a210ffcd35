package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/and161185/machtrueke/internal/swipe"
)

type swipeKind int

const (
	swipeShow swipeKind = iota
	swipeLeft
	swipeRight
	swipeDrag
	swipeRelease
	swipeQuit
)

type swipeCmd struct {
	kind swipeKind
	dx   float64
}

const emptyQueueMsg = "No hay más productos por ahora."

// parseSwipeLine reads one input line. Arrow keys arrive as ANSI escapes.
func parseSwipeLine(line string) (swipeCmd, error) {
	switch line {
	case "\x1b[D":
		return swipeCmd{kind: swipeLeft}, nil
	case "\x1b[C":
		return swipeCmd{kind: swipeRight}, nil
	}
	f := strings.Fields(strings.ToLower(line))
	if len(f) == 0 {
		return swipeCmd{kind: swipeShow}, nil
	}
	switch f[0] {
	case "l", "left", "skip":
		return swipeCmd{kind: swipeLeft}, nil
	case "r", "right", "match":
		return swipeCmd{kind: swipeRight}, nil
	case "release", "up":
		return swipeCmd{kind: swipeRelease}, nil
	case "q", "quit", "exit":
		return swipeCmd{kind: swipeQuit}, nil
	case "show":
		return swipeCmd{kind: swipeShow}, nil
	case "d", "drag":
		if len(f) != 2 {
			return swipeCmd{}, errors.New("drag needs an offset, e.g. drag 120")
		}
		dx, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return swipeCmd{}, fmt.Errorf("bad offset %q", f[1])
		}
		return swipeCmd{kind: swipeDrag, dx: dx}, nil
	}
	return swipeCmd{}, fmt.Errorf("unknown input %q", line)
}

// runSwipe drives the swipe machine over the product queue from a.in.
// There is no animation, so every decision settles immediately.
func (a *app) runSwipe(ctx context.Context) error {
	cards, err := a.client.ListMyProducts(ctx)
	if err != nil {
		return err
	}
	m := swipe.NewMachine(swipe.NewDeck(cards), a.client, a.likes, a.log)
	if m.View().Card == nil {
		fmt.Fprintln(a.out, emptyQueueMsg)
		return nil
	}
	a.renderCard(m.View())

	sc := bufio.NewScanner(a.in)
	for sc.Scan() {
		cmd, err := parseSwipeLine(sc.Text())
		if err != nil {
			fmt.Fprintln(a.out, "?", err)
			continue
		}

		var out swipe.Outcome
		switch cmd.kind {
		case swipeQuit:
			return nil
		case swipeShow:
			a.renderCard(m.View())
			continue
		case swipeDrag:
			if err = m.Drag(cmd.dx); err == nil {
				v := m.View()
				fmt.Fprintf(a.out, "offset=%.0f match=%.2f skip=%.2f\n", v.Offset, v.MatchBadge, v.RejectBadge)
			}
		case swipeRelease:
			out, err = m.Release(ctx)
		case swipeLeft:
			out, err = m.Key(ctx, swipe.KeyLeft)
		case swipeRight:
			out, err = m.Key(ctx, swipe.KeyRight)
		}

		if errors.Is(err, swipe.ErrQueueEmpty) {
			fmt.Fprintln(a.out, emptyQueueMsg)
			return nil
		}
		if err != nil {
			fmt.Fprintln(a.out, errorLine(err))
			continue
		}
		if out.Decision == swipe.None {
			continue
		}

		a.reportOutcome(out)
		_ = m.Settle()
		v := m.View()
		if v.Card == nil {
			fmt.Fprintln(a.out, emptyQueueMsg)
			return nil
		}
		if out.Decision != swipe.Return {
			a.renderCard(v)
		}
	}
	return sc.Err()
}

func (a *app) renderCard(v swipe.View) {
	if v.Card == nil {
		fmt.Fprintln(a.out, emptyQueueMsg)
		return
	}
	c := v.Card
	fmt.Fprintf(a.out, "[%d left] %s (%s) by %s\n", v.Remaining, c.Title, c.ID, c.Owner.Name)
	if c.Description != "" {
		fmt.Fprintf(a.out, "  %s\n", c.Description)
	}
}

func (a *app) reportOutcome(out swipe.Outcome) {
	switch out.Decision {
	case swipe.Accept:
		fmt.Fprintf(a.out, "match: %s with %s\n", out.Card.Title, out.Match.Owner.Name)
	case swipe.Reject:
		fmt.Fprintf(a.out, "skip: %s\n", out.Card.Title)
	case swipe.Return:
		fmt.Fprintln(a.out, "back")
	}
}
