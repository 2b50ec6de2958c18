package runner

import "sefip-robot/src/audit"

// OutcomeKind tags how an item ended.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	PartialSkip
	Failed
	UserCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case PartialSkip:
		return "partial"
	case Failed:
		return "failed"
	case UserCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ItemOutcome is the classified result of one item. Reason is set for
// PartialSkip and Failed.
type ItemOutcome struct {
	Kind   OutcomeKind
	Reason string
}

func failed(reason string) ItemOutcome {
	return ItemOutcome{Kind: Failed, Reason: reason}
}

// Status is the audit status column for this outcome.
func (o ItemOutcome) Status() string {
	switch o.Kind {
	case Success:
		return audit.StatusSuccess
	case PartialSkip:
		return audit.StatusPartial
	case UserCancelled:
		return audit.StatusCancelled
	default:
		return audit.ErrorStatus(o.Reason)
	}
}
