package ports

// ProcessNameResolver maps a process id to a process name.
type ProcessNameResolver interface {
	// Name returns the process name for pid, or "" if it cannot be resolved.
	Name(pid int) string
}

// ResolverCache is implemented by resolvers that cache names. Sessions
// clear it on every start.
type ResolverCache interface {
	Forget()
}
