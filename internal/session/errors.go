package session

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called on a session
	// whose identity is already bound. Identity binds exactly once.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrSessionFinished is returned when an answer is submitted to a
	// finished session.
	ErrSessionFinished = errors.New("session already finished")

	// ErrNotStarted is returned when an operation requires a bound
	// session identity.
	ErrNotStarted = errors.New("session not started")

	// ErrSessionExists is returned by the registry when a session for
	// the (student, exam) key already exists.
	ErrSessionExists = errors.New("session already exists for student and exam")

	// ErrSessionNotFound is returned by the registry when no session
	// exists in memory or in storage for the key.
	ErrSessionNotFound = errors.New("session not found")
)
