package operator

import (
	"strings"

	"github.com/sema/keyirq/pkg/keyirq"
	"github.com/sema/keyirq/pkg/keypad"
)

// Follower is an operator that does what the screen says. It looks for the
// latest instruction line on the console and, after a reaction time, holds
// the keys the instruction asks for.
type Follower struct {
	instructions map[string]keypad.KeyMask
	reaction     uint64

	line    int
	seenAt  uint64
	target  keypad.KeyMask
	holding keypad.KeyMask
}

// NewFollower follows the prompts of the given table. reaction is the
// number of frames between an instruction appearing and the keys changing.
func NewFollower(steps []keyirq.Step, reaction uint64) *Follower {
	return &Follower{
		instructions: keyirq.Instructions(steps),
		reaction:     reaction,
		line:         -1,
		target:       keypad.Released,
		holding:      keypad.Released,
	}
}

func (f *Follower) Input(frame uint64, console []string) keypad.KeyMask {
	for i := len(console) - 1; i > f.line; i-- {
		if keys, ok := f.instructions[strings.TrimSpace(console[i])]; ok {
			f.line = i
			f.target = keys
			f.seenAt = frame
			break
		}
	}

	if frame >= f.seenAt+f.reaction {
		f.holding = f.target
	}
	return f.holding
}
