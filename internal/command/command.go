package command

import (
	"strings"

	"parkbot/internal/parse"
)

// Kind identifies which command an inbound message asked for.
type Kind int

const (
	Unknown Kind = iota
	Park
	List
	Alert
	GoDriving
	GoTransit
	Status
)

func (k Kind) String() string {
	switch k {
	case Park:
		return "park"
	case List:
		return "list"
	case Alert:
		return "alert"
	case GoDriving:
		return "go_driving"
	case GoTransit:
		return "go_transit"
	case Status:
		return "status"
	default:
		return "unknown"
	}
}

// Command is the classified form of one inbound message.
type Command struct {
	Kind Kind
	// DurationText is the Park-notation text, set only for Park.
	DurationText string
}

// keywords are matched in order against the normalized text.
// A bare GO means driving.
var keywords = []struct {
	text string
	kind Kind
}{
	{"LIST", List},
	{"ALERT", Alert},
	{"GO DRIVING", GoDriving},
	{"GO TRANSIT", GoTransit},
	{"GO", GoDriving},
	{"STATUS", Status},
}

// Classify maps raw message text to a Command. Park notation is checked
// before any keyword.
func Classify(text string) Command {
	trimmed := strings.TrimSpace(text)
	if parse.IsParkNotation(trimmed) {
		return Command{Kind: Park, DurationText: trimmed}
	}

	normalized := strings.ToUpper(strings.Join(strings.Fields(trimmed), " "))
	for _, kw := range keywords {
		if normalized == kw.text {
			return Command{Kind: kw.kind}
		}
	}
	return Command{Kind: Unknown}
}
