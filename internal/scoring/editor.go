package scoring

import (
	"fmt"
	"slices"
)

type State int

const (
	// Editing holds a draft whose total is not 100.
	Editing State = iota
	// Valid holds a draft that may be committed.
	Valid
	// Committed means the draft equals the weights in use.
	Committed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Valid:
		return "valid"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Editor keeps a draft of reviewer weights. Edits that break the 100% total are
// kept in the draft but block Commit until the total is fixed.
type Editor struct {
	order     []string
	committed WeightSet
	proposed  WeightSet
	draft     WeightSet
	state     State
}

// NewEditor starts an editor from the initial weights. Sections are shown in
// order first; sections missing from order follow in lexical order.
func NewEditor(order []string, initial WeightSet) *Editor {
	e := newEditor(order, initial)

	if e.draft.Validate() == nil {
		e.committed = e.draft.Clone()
		e.state = Committed
	} else {
		e.state = Editing
	}

	return e
}

// NewDraftEditor starts an editor with nothing committed. The initial weights
// are only a proposal: the totals in use are not derived from them until the
// first Commit.
func NewDraftEditor(order []string, initial WeightSet) *Editor {
	e := newEditor(order, initial)
	e.refresh()
	return e
}

func newEditor(order []string, initial WeightSet) *Editor {
	e := &Editor{draft: initial.Clone(), proposed: initial.Clone()}

	for _, s := range order {
		if _, ok := initial[s]; ok && !slices.Contains(e.order, s) {
			e.order = append(e.order, s)
		}
	}
	for _, s := range initial.Sections() {
		if !slices.Contains(e.order, s) {
			e.order = append(e.order, s)
		}
	}

	return e
}

// Set changes one weight and recomputes the state from the new total.
func (e *Editor) Set(section string, value float64) error {
	if _, ok := e.draft[section]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if err := checkRange(section, value); err != nil {
		return err
	}

	e.draft[section] = value
	e.refresh()
	return nil
}

// Commit promotes the draft to the weights in use. From the editing state it
// returns a *ValidationError and leaves everything unchanged.
func (e *Editor) Commit() (WeightSet, error) {
	if e.state == Editing {
		return nil, &ValidationError{Sum: e.draft.Sum()}
	}

	e.committed = e.draft.Clone()
	e.state = Committed
	return e.committed.Clone(), nil
}

// Cancel drops the draft and returns to the last committed weights, or to the
// initial proposal when nothing was committed yet.
func (e *Editor) Cancel() {
	if e.committed == nil {
		e.draft = e.proposed.Clone()
		e.refresh()
		return
	}
	e.draft = e.committed.Clone()
	e.state = Committed
}

// Reopen starts a new editing round from the committed weights.
func (e *Editor) Reopen() {
	if e.state == Committed {
		e.state = Valid
	}
}

func (e *Editor) refresh() {
	if e.draft.Valid() {
		e.state = Valid
		return
	}
	e.state = Editing
}

func (e *Editor) State() State { return e.state }

// Message is the validation text to show next to the weights, empty when the
// draft is acceptable.
func (e *Editor) Message() string {
	if e.state != Editing {
		return ""
	}
	return (&ValidationError{Sum: e.draft.Sum()}).Error()
}

func (e *Editor) Sum() float64 { return e.draft.Sum() }

func (e *Editor) Sections() []string { return slices.Clone(e.order) }

func (e *Editor) Draft() WeightSet { return e.draft.Clone() }

// Committed returns the weights in use, or nil when none were ever valid.
func (e *Editor) Committed() WeightSet {
	if e.committed == nil {
		return nil
	}
	return e.committed.Clone()
}
