package core

// Logger is any service that can log app messages and report them to an
// external monitoring platform.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	// Error logs an error; extra args may carry context values
	// (an identity.Person sets the reported person where supported).
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
