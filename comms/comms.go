package comms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Head is the routing part of a message, dot separated, e.g.
// "pushState" or "request.1.play".
type Head string

// Fields splits the head into its parts.
func (h Head) Fields() []string {
	return strings.Split(string(h), ".")
}

// Message is the unit that crosses a connection, in either direction.
// Data is left encoded until someone knows what type it should be.
type Message struct {
	Head Head            `json:"head"`
	Data json.RawMessage `json:"data"`
}

// Encode makes a message from a head and any JSON-able body.
func Encode(head string, data interface{}) (Message, error) {
	jdata, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", head, err)
	}
	return Message{Head: Head(head), Data: jdata}, nil
}

// Decode unpacks a message body into out.
func Decode(msg Message, out interface{}) error {
	return json.Unmarshal(msg.Data, out)
}

// Marshal turns a message into wire bytes.
func Marshal(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal turns wire bytes back into a message.
func Unmarshal(data []byte) (Message, error) {
	msg := Message{}
	err := json.Unmarshal(data, &msg)
	if err != nil {
		return Message{}, err
	}
	if msg.Head == "" {
		return Message{}, fmt.Errorf("message without head")
	}
	return msg, nil
}

// ErrorCoder is an error with a stable code, for sending to clients.
type ErrorCoder interface {
	error
	ErrorCode() string
}

// CommsError is how an error looks on the wire.
type CommsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CommsError) Error() string { return e.Message }

// WrapError makes any error wire-able, keeping the code if it has one.
func WrapError(err error) *CommsError {
	if err == nil {
		return nil
	}
	code := "ERROR"
	if ec, ok := err.(ErrorCoder); ok {
		code = ec.ErrorCode()
	}
	return &CommsError{Code: code, Message: err.Error()}
}

// ReError turns a received CommsError back into a normal error, or nil.
func ReError(e *CommsError) error {
	if e == nil {
		return nil
	}
	return e
}
