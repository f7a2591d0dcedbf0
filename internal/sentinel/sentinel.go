package sentinel

var _ error = Error("")

// Error is an error backed by a string constant. Two values are equal (and
// therefore match under errors.Is) exactly when their messages are equal.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
