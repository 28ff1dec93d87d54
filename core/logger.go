package core

// Actor identifies the wallet behind a request or command. Loggers use it
// to tag error reports with the acting account.
type Actor struct {
	Address string
	Name    string
}

// Logger is any service the app can log to. Implementations may fan entries
// out to an error reporting service in addition to the standard logger; an
// Actor passed in args tags the report with the acting account.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
