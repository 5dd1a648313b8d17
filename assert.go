package arena

import "fmt"

// AssertHandler is invoked whenever a precondition check fails. Handlers do
// not need to return: the default handler panics. Replacing the handler with
// one that records the message and returns turns violations into soft errors,
// which the debug policy tests rely on.
type AssertHandler func(msg string)

var assertHandler AssertHandler = func(msg string) {
	panic(msg)
}

// SetAssertHandler replaces the handler invoked on failed precondition checks
// and returns the previous one. Passing nil restores the default panicking
// handler. Not safe for concurrent use with running allocations.
func SetAssertHandler(handler AssertHandler) AssertHandler {
	previous := assertHandler
	if handler == nil {
		handler = func(msg string) { panic(msg) }
	}
	assertHandler = handler
	return previous
}

// Assert invokes the assert handler with msg if cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		assertHandler(msg)
	}
}

// Assertf invokes the assert handler with a formatted message if cond is false.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		assertHandler(fmt.Sprintf(format, args...))
	}
}
