// internal/protocol/line.go
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// MessageKind identifies a device to hub line
type MessageKind string

const (
	MessageID         MessageKind = "id"
	MessageVersion    MessageKind = "version"
	MessageCount      MessageKind = "count"
	MessageDescriptor MessageKind = "comp"
	MessageValues     MessageKind = "val"
	MessageUnknown    MessageKind = "unknown"
)

// Message represents one parsed line sent by a device
type Message struct {
	Kind       MessageKind
	Raw        string
	Text       string   // id or version
	Count      int      // count
	Index      int      // comp
	Descriptor string   // comp
	Values     []string // val, positional by component index
}

// IsMetadata reports whether the message changes what the device looks like
// rather than what it measures.
func (m Message) IsMetadata() bool {
	switch m.Kind {
	case MessageID, MessageVersion, MessageCount, MessageDescriptor:
		return true
	default:
		return false
	}
}

// ParseLine parses a device line. Trailing line terminators are stripped.
// Lines that do not match a known form come back as MessageUnknown.
func ParseLine(line string) Message {
	line = strings.TrimRight(line, "\r\n")
	msg := Message{Kind: MessageUnknown, Raw: line}

	key, rest, found := strings.Cut(line, ":")
	if !found {
		return msg
	}

	switch MessageKind(key) {
	case MessageID:
		msg.Kind = MessageID
		msg.Text = rest
	case MessageVersion:
		msg.Kind = MessageVersion
		msg.Text = rest
	case MessageCount:
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return msg
		}
		msg.Kind = MessageCount
		msg.Count = n
	case MessageDescriptor:
		idx, descriptor, ok := strings.Cut(rest, ":")
		if !ok {
			return msg
		}
		n, err := strconv.Atoi(idx)
		if err != nil {
			return msg
		}
		msg.Kind = MessageDescriptor
		msg.Index = n
		msg.Descriptor = descriptor
	case MessageValues:
		msg.Kind = MessageValues
		if rest != "" {
			msg.Values = strings.Split(rest, ",")
		}
	}

	return msg
}

// CommandKind identifies a hub to device line
type CommandKind string

const (
	CommandInfo CommandKind = "info"
	CommandPoll CommandKind = "poll"
	CommandSet  CommandKind = "set"
)

// Command represents one line sent by the hub to a device
type Command struct {
	Kind  CommandKind
	Index int    // set
	Value string // set
}

// SetCommand builds an actuator command for the component at index.
func SetCommand(index int, value string) Command {
	return Command{Kind: CommandSet, Index: index, Value: value}
}

// FormatCommand renders cmd without the line terminator.
func FormatCommand(cmd Command) string {
	if cmd.Kind == CommandSet {
		return fmt.Sprintf("%s:%d:%s", CommandSet, cmd.Index, cmd.Value)
	}
	return string(cmd.Kind)
}

// ParseCommand is the device side of FormatCommand.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")

	switch CommandKind(line) {
	case CommandInfo, CommandPoll:
		return Command{Kind: CommandKind(line)}, nil
	}

	key, rest, found := strings.Cut(line, ":")
	if !found || CommandKind(key) != CommandSet {
		return Command{}, fmt.Errorf("unknown command: %q", line)
	}
	idx, value, ok := strings.Cut(rest, ":")
	if !ok {
		return Command{}, fmt.Errorf("malformed set command: %q", line)
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return Command{}, fmt.Errorf("invalid component index %q: %w", idx, err)
	}
	return SetCommand(n, value), nil
}
