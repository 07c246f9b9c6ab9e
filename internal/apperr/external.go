// Package apperr carries failures of third-party services (Stripe, SES,
// Google, RabbitMQ) up to the HTTP boundary with enough context to log them
// once and answer with the generic error.
package apperr

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// External wraps an error returned by a remote API.
type External struct {
	Service   string
	Operation string
	Context   map[string]interface{}
	Err       error
}

func (e *External) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
}

func (e *External) Unwrap() error { return e.Err }

// Fields renders the error as logrus fields. Context keys are copied first
// so they cannot shadow service, operation or error.
func (e *External) Fields() logrus.Fields {
	f := logrus.Fields{}
	for k, v := range e.Context {
		f[k] = v
	}
	f["service"] = e.Service
	f["operation"] = e.Operation
	f["error"] = e.Err.Error()
	return f
}

// Wrap returns nil when err is nil, otherwise an *External.
func Wrap(service, operation string, err error, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &External{Service: service, Operation: operation, Context: ctx, Err: err}
}

// AsExternal reports whether err carries an *External anywhere in its chain.
func AsExternal(err error) (*External, bool) {
	var ext *External
	if errors.As(err, &ext) {
		return ext, true
	}
	return nil, false
}
