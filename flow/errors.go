package flow

// ConfigurationError reports missing or invalid construction and Init
// arguments. It is returned synchronously and aborts the failing call; no
// other operation in this package has an error path of its own.
type ConfigurationError struct {
	Op     string // the failing operation, "new" or "init"
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "verikit: " + e.Op + ": " + e.Reason
}

func configErr(op, reason string) error {
	return &ConfigurationError{Op: op, Reason: reason}
}
