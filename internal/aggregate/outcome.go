package aggregate

// outcomeKind tags how an external call ended.
type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	// outcomeSoft marks a best-effort call that failed; its field degrades
	// to null/empty and the request still succeeds.
	outcomeSoft
	// outcomeFatal marks a mandatory call that failed; the whole request
	// terminates.
	outcomeFatal
)

// outcome is the tagged result of one external call. Classification
// happens exactly once; there is no retry.
type outcome[T any] struct {
	kind  outcomeKind
	value T
	err   error
}

// softCall classifies a best-effort call.
func softCall[T any](value T, err error) outcome[T] {
	if err != nil {
		return outcome[T]{kind: outcomeSoft, err: err}
	}
	return outcome[T]{kind: outcomeOK, value: value}
}

// fatalCall classifies a mandatory call.
func fatalCall[T any](value T, err error) outcome[T] {
	if err != nil {
		return outcome[T]{kind: outcomeFatal, err: err}
	}
	return outcome[T]{kind: outcomeOK, value: value}
}

func (o outcome[T]) ok() bool { return o.kind == outcomeOK }
