// Package task models the closed set of file-maintenance operations spool
// executes: echo, delete, copy, move, convert, plus the noop and kill
// sentinels. Every variant carries the same contract: an integer kind
// discriminant, on-demand precondition validation, a Run side effect, and a
// flat document serialization that round-trips through the queue store.
//
// Validation is deliberately separate from construction and from execution:
// the same precondition check runs when a task is built, optionally when it
// is deserialized, and again immediately before Run. Queued filesystem work
// is inherently time-of-check/time-of-use shaped, and re-running one check
// at each point closes that gap without duplicating logic.
package task

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Kind discriminates task variants. The numeric values are part of the
// persisted document format and must not be reassigned.
type Kind int

const (
	KindKill    Kind = -1
	KindNoop    Kind = 0
	KindEcho    Kind = 1
	KindFile    Kind = 2
	KindDelete  Kind = 3
	KindCopy    Kind = 4
	KindMove    Kind = 5
	KindConvert Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindKill:
		return "kill"
	case KindNoop:
		return "noop"
	case KindEcho:
		return "echo"
	case KindFile:
		return "file"
	case KindDelete:
		return "delete"
	case KindCopy:
		return "copy"
	case KindMove:
		return "move"
	case KindConvert:
		return "convert"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrNotFound marks a validation failure for a missing source path.
	ErrNotFound = errors.New("source does not exist")
	// ErrAlreadyExists marks a validation failure for an occupied destination.
	ErrAlreadyExists = errors.New("destination already exists")
	// ErrInvalidTarget marks a source that is neither file nor directory.
	ErrInvalidTarget = errors.New("source is neither a file nor a directory")
	// ErrUnknownKind is returned by the factory for an unrecognized discriminant.
	ErrUnknownKind = errors.New("unknown task kind")
)

// Task is one unit of file-maintenance work.
type Task interface {
	// Kind returns the variant discriminant.
	Kind() Kind
	// Validate re-checks filesystem preconditions. Safe to call at any
	// point between construction and execution.
	Validate() error
	// Run performs the side effect. Variants with destination
	// preconditions re-validate immediately before acting.
	Run(ctx context.Context) error
	// Describe returns a short human-readable summary.
	Describe() string
}

// Noop does nothing. It exists so a persisted record can represent the
// absence of work without a null payload.
type Noop struct{}

func (Noop) Kind() Kind                { return KindNoop }
func (Noop) Validate() error           { return nil }
func (Noop) Run(context.Context) error { return nil }
func (Noop) Describe() string          { return "NULL" }

// Kill instructs a worker to stop its loop. It has no filesystem effect;
// the runner marks it done and halts instead of calling Run.
type Kill struct{}

func (Kill) Kind() Kind                { return KindKill }
func (Kill) Validate() error           { return nil }
func (Kill) Run(context.Context) error { return nil }
func (Kill) Describe() string          { return "KILL" }

// Echo prints its message to stdout.
type Echo struct {
	Msg string
}

func (Echo) Kind() Kind      { return KindEcho }
func (Echo) Validate() error { return nil }

func (e Echo) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(os.Stdout, e.Msg)
	return err
}

func (e Echo) Describe() string { return fmt.Sprintf("Echo: %q", e.Msg) }
