// Package protocol implements the line oriented wire format spoken between
// the table server and its clients. Every line starts with a token naming the
// message kind, immediately followed by its payload.
package protocol

import (
	"fmt"
	"strings"
)

// Kind identifies a wire message.
type Kind string

const (
	KindSubmitName   Kind = "SUBMIT_NAME"
	KindNameAccepted Kind = "NAME_ACCEPTED"
	KindWelcome      Kind = "WELCOME"
	KindFull         Kind = "FULL"
	KindMessage      Kind = "MESSAGE"
	KindMove         Kind = "MOVE"
	KindQuit         Kind = "QUIT"
	KindExit         Kind = "EXIT"

	// KindChat is never written as a token. Client lines without a known
	// token decode to it and carry the whole line as payload.
	KindChat Kind = "CHAT"
)

// serverKinds is ordered so that no token is shadowed by a shorter prefix.
var serverKinds = []Kind{
	KindNameAccepted,
	KindSubmitName,
	KindWelcome,
	KindMessage,
	KindFull,
	KindQuit,
	KindExit,
}

// Message is a decoded wire line.
type Message struct {
	Kind    Kind
	Payload string
}

// Closes reports whether the receiver is expected to disconnect after this message.
func (m Message) Closes() bool {
	return m.Kind == KindQuit || m.Kind == KindExit
}

func (m Message) String() string {
	return Encode(m)
}

// SubmitName asks the client for an identity.
func SubmitName() Message { return Message{Kind: KindSubmitName} }

// NameAccepted confirms the submitted identity.
func NameAccepted() Message { return Message{Kind: KindNameAccepted} }

// Welcome confirms the seat for identity.
func Welcome(identity string) Message { return Message{Kind: KindWelcome, Payload: identity} }

// Full tells the client the table is at capacity.
func Full() Message { return Message{Kind: KindFull} }

// Text is a chat visible line.
func Text(format string, args ...any) Message {
	if len(args) == 0 {
		return Message{Kind: KindMessage, Payload: format}
	}
	return Message{Kind: KindMessage, Payload: fmt.Sprintf(format, args...)}
}

// Quit terminates the round on the client.
func Quit() Message { return Message{Kind: KindQuit} }

// Exit rejects a registration.
func Exit() Message { return Message{Kind: KindExit} }

// Encode renders m as a single line without the trailing newline.
func Encode(m Message) string {
	if m.Kind == KindChat {
		return sanitize(m.Payload)
	}
	return string(m.Kind) + sanitize(m.Payload)
}

// DecodeClient decodes a line sent by a client. It never fails: anything
// that is not a bid is chat.
func DecodeClient(line string) Message {
	line = strings.TrimRight(line, "\r\n")
	if rest, ok := strings.CutPrefix(line, string(KindMove)); ok {
		return Message{Kind: KindMove, Payload: rest}
	}
	return Message{Kind: KindChat, Payload: line}
}

// DecodeServer decodes a line sent by the server.
func DecodeServer(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	for _, k := range serverKinds {
		if rest, ok := strings.CutPrefix(line, string(k)); ok {
			return Message{Kind: k, Payload: rest}, nil
		}
	}
	return Message{}, fmt.Errorf("unknown server token in %q", line)
}

// sanitize keeps a payload on a single line.
func sanitize(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
