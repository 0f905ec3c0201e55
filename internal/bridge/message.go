// Package bridge routes messages posted by page scripts to Go handlers and
// sends handler replies back to the page.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedMessage = errors.New("bridge: malformed message")
	ErrMissingMethod    = errors.New("bridge: message has no methodName")
)

// NoCallback marks a message that expects no reply.
const NoCallback = -1

// Message is one script-to-host call.
type Message struct {
	CallbackID int
	Method     string
	// Params is the JSON text of the arguments, or the plain value when the
	// page sent a JSON string.
	Params string
}

// WantsReply reports whether the page registered a callback for the message.
func (m Message) WantsReply() bool {
	return m.CallbackID >= 0
}

type wireMessage struct {
	CallbackID json.RawMessage `json:"callbackId"`
	MethodName json.RawMessage `json:"methodName"`
	Params     json.RawMessage `json:"params"`
}

// ParseMessage decodes {"callbackId", "methodName", "params"}. Unknown keys
// are ignored; a missing or non-numeric callbackId becomes NoCallback.
func ParseMessage(raw string) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	method, ok := primitiveContent(wire.MethodName)
	if !ok {
		return Message{}, ErrMissingMethod
	}

	msg := Message{
		CallbackID: NoCallback,
		Method:     method,
	}
	if content, ok := primitiveContent(wire.CallbackID); ok {
		if id, err := strconv.Atoi(content); err == nil {
			msg.CallbackID = id
		}
	}
	if content, ok := primitiveContent(wire.Params); ok {
		msg.Params = content
	} else if len(wire.Params) > 0 && string(wire.Params) != "null" {
		msg.Params = string(wire.Params)
	}
	return msg, nil
}

// primitiveContent returns the text of a JSON string, number or boolean.
func primitiveContent(raw json.RawMessage) (string, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", false
	}
	switch text[0] {
	case '{', '[':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	default:
		return text, true
	}
}

// CallbackScript builds the script that hands result to the page callback.
func CallbackScript(bridgeName string, callbackID int, result string) (string, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("window.%s.onCallback(%d, %s);", bridgeName, callbackID, encoded), nil
}
