package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error so that reporting them never touches the Go allocator;
// code running in trap context or before the runtime is bootstrapped cannot
// rely on errors.New or fmt.Errorf.
type Error struct {
	// The subsystem that raised the error (e.g. "pic", "gate").
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
