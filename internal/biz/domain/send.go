package domain

// SendResult is the outcome of one transport send attempt
type SendResult struct {
	Success    bool
	StatusCode int
	Stdout     string
	Stderr     string
}
