// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Spawner] and [Process]: start the capture subprocess and expose its streams
//   - [Listener]: receives lifecycle and record delivery events
//   - [Poster]: the host's callback-delivery mechanism (a "main thread" analogue)
//   - [ProcessNameResolver]: maps a process id to its name for record headers
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (os/exec, a serial looper goroutine, procfs).
package ports
