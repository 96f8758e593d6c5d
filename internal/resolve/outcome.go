// Package resolve decides whether an incoming contributor or edition is
// already stored, and merges it into the store when it is.
package resolve

import "fmt"

// Kind classifies the result of one resolver step.
type Kind string

const (
	KindMatched  Kind = "matched"
	KindCreated  Kind = "created"
	KindRejected Kind = "rejected"
)

// Outcome is the result of resolving one entity, edition or subject.
type Outcome struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	ID     int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Matched reports that an existing row with the given id was reused.
func Matched(id int64) Outcome {
	return Outcome{Kind: KindMatched, ID: id}
}

// Created reports that a new row with the given id was written.
func Created(id int64) Outcome {
	return Outcome{Kind: KindCreated, ID: id}
}

// Rejected reports that nothing was written.
func Rejected(reason string) Outcome {
	return Outcome{Kind: KindRejected, Reason: reason}
}

func (o Outcome) String() string {
	if o.Kind == KindRejected {
		return fmt.Sprintf("rejected(%s)", o.Reason)
	}
	return fmt.Sprintf("%s(%d)", o.Kind, o.ID)
}
