// Package relay implements the chat relay core: the live connection set with
// its broadcast primitives, and the lifecycle handler that serializes every
// join, message, typing and disconnect event through a single loop.
//
// The handler exclusively owns the session registry, the history buffer and
// the broadcaster. Transport goroutines only ever talk to it through Submit
// and the query methods, so none of that state needs locking.
package relay
