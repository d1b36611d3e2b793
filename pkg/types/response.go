package types

// Response is the reply delivered to a front-end context. Exactly one of
// Value or Error is meaningful; a nil Value with no Error is an acknowledgement.
type Response struct {
	Value interface{} `json:"value"`
	Error string      `json:"error,omitempty"`
}

// NewValueResponse creates a successful response carrying value.
func NewValueResponse(value interface{}) *Response {
	return &Response{Value: value}
}

// NewAckResponse creates a successful response with no payload.
func NewAckResponse() *Response {
	return &Response{}
}

// NewErrorResponse creates a failure response from err.
func NewErrorResponse(err error) *Response {
	if err == nil {
		return NewAckResponse()
	}
	return &Response{Error: err.Error()}
}

// IsError reports whether the response describes a failure.
func (r *Response) IsError() bool {
	return r != nil && r.Error != ""
}
