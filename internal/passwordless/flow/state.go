package flow

// State is the position of a sign-in attempt in the passwordless flow.
type State int

const (
	StateLoading State = iota
	StateNeedEmail
	StateVerifying
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNeedEmail:
		return "needEmail"
	case StateVerifying:
		return "verifying"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateError:
		return true
	case StateLoading, StateNeedEmail, StateVerifying:
		return false
	default:
		return false
	}
}

// ErrorKind selects the variant shown in the error state.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorExpired
	ErrorInvalidLink
	ErrorInvalidEmail
	ErrorGeneric
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return ""
	case ErrorExpired:
		return "expired"
	case ErrorInvalidLink:
		return "invalid-link"
	case ErrorInvalidEmail:
		return "invalid-email"
	case ErrorGeneric:
		return "generic"
	default:
		return "generic"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NextAction is what the user is offered after a failure.
type NextAction string

const (
	ActionNone           NextAction = ""
	ActionRequestNewLink NextAction = "request_new_link"
	ActionRetryEmail     NextAction = "retry_email"
	ActionBackToLogin    NextAction = "back_to_login"
)
