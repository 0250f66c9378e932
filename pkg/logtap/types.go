package logtap

import (
	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/filter"
	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/pkg/log"
)

type (
	// Record is one parsed log record.
	Record = domain.Record

	// Priority is the severity of a record.
	Priority = domain.Priority

	// Predicate decides whether a record is visible.
	Predicate = filter.Predicate

	// Listener receives capture events.
	Listener = ports.Listener

	// Poster schedules listener callbacks onto the host's delivery goroutine.
	Poster = ports.Poster

	// PosterFunc adapts a function to Poster.
	PosterFunc = ports.PosterFunc

	// Spawner starts the capture process.
	Spawner = ports.Spawner

	// Process is a running capture process.
	Process = ports.Process

	// ProcessNameResolver maps a pid to a process name.
	ProcessNameResolver = ports.ProcessNameResolver

	// Logger is the structured logger used by a Tap.
	Logger = log.Logger
)

// Record priorities, lowest first.
const (
	PriorityUnknown = domain.PriorityUnknown
	PriorityVerbose = domain.PriorityVerbose
	PriorityDebug   = domain.PriorityDebug
	PriorityInfo    = domain.PriorityInfo
	PriorityWarn    = domain.PriorityWarn
	PriorityError   = domain.PriorityError
	PriorityFatal   = domain.PriorityFatal
	PriorityAssert  = domain.PriorityAssert
)

// ParsePriority accepts a priority letter ("W") or name ("warn").
func ParsePriority(s string) (Priority, error) {
	return domain.ParsePriority(s)
}

// Inline runs listener callbacks on the goroutine that raises them.
// Listeners driven by Inline must not call back into the Tap.
var Inline = ports.Inline

// Filter builders.
var (
	MinPriority     = filter.MinPriority
	Tags            = filter.Tags
	PIDs            = filter.PIDs
	MessageContains = filter.MessageContains
	Not             = filter.Not
)

// BaseListener implements Listener with no-op methods. Embed it to handle
// only the callbacks you need.
type BaseListener struct{}

func (BaseListener) OnStart()                    {}
func (BaseListener) OnStartFailed()              {}
func (BaseListener) OnStop(wasError bool)        {}
func (BaseListener) OnRecord(rec Record)         {}
func (BaseListener) OnRecordBatch(recs []Record) {}

var _ Listener = BaseListener{}
