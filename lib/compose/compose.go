// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"math"
	"strconv"
	"time"

	"github.com/bureau-foundation/debugbot/lib/agreement"
	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/messaging"
)

// Finder selects the messages a reply refers to.
type Finder func(state *agreement.State) []ref.MessageID

// Referrer attaches targets to an outbound message.
type Referrer func(outbound messaging.Outbound, targets ...ref.MessageID) messaging.Outbound

// TextMaker writes the reply text. An empty targets slice means the
// finder found nothing.
type TextMaker func(queryDuration time.Duration, state *agreement.State, targets []ref.MessageID) string

// Referrers for the speech acts a reply can perform.
var (
	Proposes         = referTo(convlog.Proposes)
	Accepts          = referTo(convlog.Accepts)
	Rejects          = referTo(convlog.Rejects)
	Retracts         = referTo(convlog.Retracts)
	ProposesToCancel = referTo(convlog.ProposesToCancel)
)

func referTo(act convlog.SpeechAct) Referrer {
	return func(outbound messaging.Outbound, targets ...ref.MessageID) messaging.Outbound {
		return outbound.With(act, targets...)
	}
}

// Pipeline is the reply recipe of one command.
type Pipeline struct {
	Finder    Finder
	Referrer  Referrer
	TextMaker TextMaker
	// Clock times the query. Defaults to the wall clock.
	Clock clock.Clock
}

// Reply is a composed reply.
type Reply struct {
	Outbound messaging.Outbound
	// Targets are the non-zero ids the finder returned; empty when
	// nothing was found.
	Targets       []ref.MessageID
	QueryDuration time.Duration
}

// Found reports whether the reply refers to anything.
func (r Reply) Found() bool { return len(r.Targets) > 0 }

// Compose runs the pipeline against state and builds the reply for
// conversation. Zero ids returned by the finder are dropped.
func (p Pipeline) Compose(conversation ref.ConversationID, state *agreement.State) Reply {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real()
	}

	started := clk.Now()
	found := p.Finder(state)
	queryDuration := clk.Now().Sub(started)

	targets := make([]ref.MessageID, 0, len(found))
	for _, id := range found {
		if !id.IsZero() {
			targets = append(targets, id)
		}
	}

	outbound := messaging.NewText(conversation, p.TextMaker(queryDuration, state, targets))
	if len(targets) > 0 {
		outbound = p.Referrer(outbound, targets...)
	}
	return Reply{Outbound: outbound, Targets: targets, QueryDuration: queryDuration}
}

// Single adapts a finder of one optional id to [Finder].
func Single(find func(state *agreement.State) (ref.MessageID, bool)) Finder {
	return func(state *agreement.State) []ref.MessageID {
		id, ok := find(state)
		if !ok {
			return nil
		}
		return []ref.MessageID{id}
	}
}

// FormatSeconds renders d in seconds with at most two decimals and no
// trailing zeros: 1.5s is "1.5", 120ms is "0.12", 3s is "3".
func FormatSeconds(d time.Duration) string {
	seconds := math.RoundToEven(d.Seconds()*100) / 100
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
