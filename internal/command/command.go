// Package command parses raw chat messages into scheduling commands.
package command

import "strings"

// Kind tags the command variant so the bot can dispatch on it.
type Kind int

const (
	// KindSchedule asks for a meeting to be created.
	KindSchedule Kind = iota
	// KindHelp asks for usage text.
	KindHelp
)

// Fields are the pipe-delimited pieces of a scheduling command. Missing
// pieces are empty strings, never errors.
type Fields struct {
	Summary      string
	TimeText     string
	DurationText string
}

// Command is one parsed chat message.
type Command struct {
	Kind   Kind
	Fields Fields
}

// SplitFields splits raw on the first two pipes and trims every field. It is
// total: any string, pipes or not, yields a result. Without any pipe the
// whole trimmed input is the summary.
func SplitFields(raw string) Fields {
	head := strings.SplitN(raw, "|", 2)
	fields := Fields{Summary: strings.TrimSpace(head[0])}
	if len(head) < 2 {
		return fields
	}
	rest := strings.SplitN(head[1], "|", 2)
	fields.TimeText = strings.TrimSpace(rest[0])
	if len(rest) == 2 {
		fields.DurationText = strings.TrimSpace(rest[1])
	}
	return fields
}

// Parse classifies a message and, for scheduling commands, splits its fields.
func Parse(text string) Command {
	trimmed := strings.TrimSpace(text)
	word := trimmed
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		word = trimmed[:i]
	}
	switch word {
	case "/help", "/start":
		return Command{Kind: KindHelp}
	}
	return Command{Kind: KindSchedule, Fields: SplitFields(trimmed)}
}
