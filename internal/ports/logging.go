package ports

// Logger is the application log sink used by shell components.
// An empty origin asks the sink to infer the caller.
type Logger interface {
	Error(message, origin string, params ...any)
	Warning(message, origin string, params ...any)
	Info(message, origin string, params ...any)
	Verbose(message, origin string, params ...any)
}
