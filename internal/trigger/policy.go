// Package trigger decides when agents speak: the per-message response
// policy and the scheduler for timed reminders and tasks.
package trigger

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/transport"
)

// Reason records why an agent decided to respond. It picks the typing
// delay band and feeds the activity log.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonMention Reason = "mention"
	ReasonName    Reason = "name"
	ReasonCommand Reason = "command"
	ReasonRandom  Reason = "random"
)

// Decision is the outcome of the response policy for one message.
type Decision struct {
	Respond bool
	Reason  Reason
}

// ShouldRespond applies the response policy in priority order: explicit
// mention, direct address by name, an !ask command, then a random roll.
// roll must be uniform in [1, 100]; it is passed in so the policy stays
// deterministic under test.
func ShouldRespond(agent store.Agent, ev transport.Event, roll int) Decision {
	if agent.RespondOnMention {
		for _, m := range ev.Mentions {
			if m != "" && (m == agent.PhoneNumber || m == agent.ID || strings.EqualFold(m, agent.Name)) {
				return Decision{Respond: true, Reason: ReasonMention}
			}
		}
	}

	name := strings.TrimSpace(agent.Name)
	if name != "" {
		lower := strings.ToLower(ev.Text)
		lowerName := strings.ToLower(name)

		if askRe(lowerName).MatchString(lower) {
			return Decision{Respond: true, Reason: ReasonCommand}
		}
		if greetingRe(lowerName).MatchString(lower) {
			return Decision{Respond: true, Reason: ReasonName}
		}
		if nameRe(lowerName).MatchString(lower) {
			return Decision{Respond: true, Reason: ReasonName}
		}
	}

	if agent.RandomChancePct > 0 && roll <= agent.RandomChancePct {
		return Decision{Respond: true, Reason: ReasonRandom}
	}
	return Decision{}
}

func nameRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

func greetingRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`^(hey|hi|yo|ok)[,!]?\s+` + regexp.QuoteMeta(name) + `\b`)
}

func askRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`^!ask\s+` + regexp.QuoteMeta(name) + `\b`)
}

// ResponseDelay returns a human-feeling pause before the agent starts
// replying. Direct address gets a quick reply, random interjections
// hang back.
func ResponseDelay(reason Reason, rng *rand.Rand) time.Duration {
	var lo, hi time.Duration
	switch reason {
	case ReasonMention:
		lo, hi = 1500*time.Millisecond, 3*time.Second
	case ReasonCommand:
		lo, hi = 1300*time.Millisecond, 2*time.Second
	case ReasonRandom:
		lo, hi = 3*time.Second, 6*time.Second
	default:
		lo, hi = 2*time.Second, 4*time.Second
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)))
}

// Roll returns a uniform value in [1, 100] for the random-response check.
func Roll(rng *rand.Rand) int {
	return rng.Intn(100) + 1
}
