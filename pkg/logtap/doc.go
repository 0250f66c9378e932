// Package logtap captures the record stream of an external logging process
// and delivers it to a listener in near real time.
//
// A [Tap] spawns the capture command (by default "logcat -v long -b main
// -b crash -b system"), parses its standard output into [Record] values,
// buffers them, and periodically delivers the newly committed records that
// pass every registered filter.
//
// # Basic Usage
//
//	tap, err := logtap.New(logtap.DefaultConfig(),
//	    logtap.WithListener(myListener),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := tap.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer tap.Close()
//
// # Delivery
//
// Listener callbacks are handed to a [Poster], which decides the goroutine
// they run on. Without [WithPoster] a [Tap] runs its own serial callback
// loop, so a listener sees one callback at a time, in order, and may call
// back into the Tap.
//
// A single newly committed record is delivered with OnRecord; several are
// delivered together with OnRecordBatch, restricted to the records that pass
// the filters. Nothing is delivered when no new record is visible.
//
// # Pause and Background
//
// [Tap.Pause] stops delivery until [Tap.Resume]; records keep accumulating.
// [Tap.OnBackground] and [Tap.OnForeground] let a host suspend delivery
// while it is not visible. Start and stop notifications raised in the
// background are queued and delivered, together with the record backlog,
// on the next OnForeground.
//
// # Filters
//
// Filters are named predicates combined with logical AND. Builders such as
// [MinPriority], [Tags] and [MessageContains] cover the common cases.
// [Tap.Stop] clears all records and filters.
//
// # Plugins
//
// A [Plugin] is initialized on Start and shut down on Stop, and may tune
// the running capture through [Control]. See plugins/configwatcher.
package logtap
