package acl

// EvalOutcome is the result of evaluating a single attribute term or a whole
// expression. True/False are normal boolean outcomes; everything else is an
// error outcome that propagates out of the jump-graph walk immediately.
type EvalOutcome int

const (
	EvalFalse EvalOutcome = iota
	EvalTrue
	EvalInvalid
	EvalFail
	EvalDecline
	EvalNeedMoreInfo
	EvalPasswordExpired
)

// Bool reports whether the outcome is a normal boolean result.
func (o EvalOutcome) Bool() bool {
	return o == EvalTrue || o == EvalFalse
}

func (o EvalOutcome) String() string {
	switch o {
	case EvalFalse:
		return "false"
	case EvalTrue:
		return "true"
	case EvalInvalid:
		return "invalid"
	case EvalFail:
		return "fail"
	case EvalDecline:
		return "decline"
	case EvalNeedMoreInfo:
		return "need-more-info"
	case EvalPasswordExpired:
		return "password-expired"
	default:
		return "unknown"
	}
}

// Decision is the final access decision for an evaluation.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionDeny
	DecisionFail
	DecisionInvalid
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	case DecisionFail:
		return "fail"
	case DecisionInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Cacheability says whether an evaluation result may be reused without
// re-evaluating. Values form a lattice ordered NotCacheable <
// ContextCacheable < IndefinitelyCacheable; combining results takes the
// minimum.
type Cacheability int

const (
	NotCacheable Cacheability = iota
	ContextCacheable
	IndefinitelyCacheable
)

// Min returns the least-cacheable of c and other.
func (c Cacheability) Min(other Cacheability) Cacheability {
	if other < c {
		return other
	}
	return c
}

func (c Cacheability) String() string {
	switch c {
	case NotCacheable:
		return "none"
	case ContextCacheable:
		return "context"
	case IndefinitelyCacheable:
		return "indefinite"
	default:
		return "unknown"
	}
}

// ResultPolicy maps non-boolean provider outcomes to decisions. The
// NeedMoreInfo and PasswordExpired mappings to deny are a provisional
// compatibility policy; hosts may override them.
type ResultPolicy struct {
	NeedMoreInfo    Decision
	PasswordExpired Decision

	// Decline maps to invalid by default: the registry keeps one provider
	// per attribute, so a declined answer means nobody answered.
	Decline Decision
}

// DefaultResultPolicy returns the compatibility policy.
func DefaultResultPolicy() ResultPolicy {
	return ResultPolicy{
		NeedMoreInfo:    DecisionDeny,
		PasswordExpired: DecisionDeny,
		Decline:         DecisionInvalid,
	}
}

// DecisionFor maps an error outcome to a decision. Boolean outcomes have no
// decision mapping and yield invalid.
func (p ResultPolicy) DecisionFor(o EvalOutcome) Decision {
	switch o {
	case EvalInvalid:
		return DecisionInvalid
	case EvalFail:
		return DecisionFail
	case EvalDecline:
		return p.Decline
	case EvalNeedMoreInfo:
		return p.NeedMoreInfo
	case EvalPasswordExpired:
		return p.PasswordExpired
	default:
		return DecisionInvalid
	}
}
