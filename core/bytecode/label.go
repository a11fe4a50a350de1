package bytecode

import (
	"github.com/google/uuid"
)

type label struct {
	uid string
}

// Label marks a position in a method body. Labels are compared by identity:
// two labels are equal only when interned by the same Labels arena under the
// same uid.
type Label struct {
	l *label
}

// UID is the name the label was interned under.
func (l Label) UID() string {
	if l.l == nil {
		return ""
	}
	return l.l.uid
}

// IsZero reports whether l was never obtained from an arena.
func (l Label) IsZero() bool { return l.l == nil }

func (l Label) Executable() bool { return false }

func (l Label) Kind() OperandKind { return OperandLabel }

func (l Label) String() string {
	if l.l == nil {
		return "<nil>"
	}
	return l.l.uid
}

// Labels interns labels for one method. It is not safe for concurrent use;
// each method body gets its own arena.
type Labels struct {
	byUID map[string]Label
}

func NewLabels() *Labels {
	return &Labels{byUID: make(map[string]Label)}
}

// Get returns the label named uid, creating it on first use.
func (ls *Labels) Get(uid string) Label {
	if l, ok := ls.byUID[uid]; ok {
		return l
	}
	l := Label{l: &label{uid: uid}}
	ls.byUID[uid] = l
	return l
}

// Fresh creates a label with a random uid.
func (ls *Labels) Fresh() Label {
	return ls.Get(uuid.NewString())
}

func (ls *Labels) Len() int { return len(ls.byUID) }
