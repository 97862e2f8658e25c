package placement

type Kind string

const (
	KindBanner    Kind = "banner"
	KindPromotion Kind = "promotion"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	switch k {
	case KindBanner, KindPromotion:
		return true
	default:
		return false
	}
}

func NewKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Scope narrows what a placement promotes. ScopeGlobal is also the key of
// the kind-wide capacity pool.
type Scope string

const (
	ScopeGlobal  Scope = ""
	ScopeVehicle Scope = "vehicle"
	ScopeDealer  Scope = "dealer"
	ScopeSeller  Scope = "seller"
)

func (s Scope) String() string {
	return string(s)
}

func (s Scope) IsValid() bool {
	switch s {
	case ScopeGlobal, ScopeVehicle, ScopeDealer, ScopeSeller:
		return true
	default:
		return false
	}
}

func (s Scope) RequiresOwner() bool {
	return s == ScopeVehicle || s == ScopeSeller
}

func NewScope(s string) (Scope, error) {
	sc := Scope(s)
	if !sc.IsValid() {
		return "", ErrInvalidScope
	}
	return sc, nil
}

type State string

const (
	StateDraft          State = "draft"
	StatePendingReview  State = "pending_review"
	StateAssigned       State = "assigned"
	StatePendingPayment State = "pending_payment"
	StateActive         State = "active"
	StateRejected       State = "rejected"
	StateExpired        State = "expired"
	StateCancelled      State = "cancelled"
)

func (s State) String() string {
	return string(s)
}

func (s State) IsValid() bool {
	switch s {
	case StateDraft, StatePendingReview, StateAssigned, StatePendingPayment,
		StateActive, StateRejected, StateExpired, StateCancelled:
		return true
	default:
		return false
	}
}

func (s State) IsTerminal() bool {
	switch s {
	case StateRejected, StateExpired, StateCancelled:
		return true
	default:
		return false
	}
}

func NewState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", ErrInvalidState
	}
	return st, nil
}

var transitions = map[State][]State{
	StateDraft:          {StatePendingReview, StateAssigned, StatePendingPayment, StateActive, StateCancelled},
	StatePendingReview:  {StateActive, StateRejected},
	StateAssigned:       {StatePendingPayment, StateRejected, StateCancelled},
	StatePendingPayment: {StatePendingPayment, StateActive, StateCancelled, StateRejected},
	StateActive:         {StateExpired, StateRejected},
}

func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Origin string

const (
	OriginPurchase    Origin = "purchase"
	OriginAdminAssign Origin = "admin_assign"
	OriginSubmission  Origin = "submission"
)

func (o Origin) String() string {
	return string(o)
}

func (o Origin) IsValid() bool {
	switch o {
	case OriginPurchase, OriginAdminAssign, OriginSubmission:
		return true
	default:
		return false
	}
}
