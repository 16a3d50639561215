package homework

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// VerdictTable maps a review status to the text shown to the student.
var VerdictTable = map[string]string{
	"approved":  "Работа проверена: ревьюеру всё понравилось. Ура!",
	"reviewing": "Работа взята на проверку ревьюером.",
	"rejected":  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the text for status and whether it is known.
func Verdict(status string) (string, bool) {
	v, ok := VerdictTable[status]
	return v, ok
}

// Submission is the part of a homework record the bot cares about.
type Submission struct {
	Name   string
	Status string
}

// Key identifies a status change independently of its rendered text.
func (s Submission) Key() string { return s.Name + "\x00" + s.Status }

// ParseSubmission extracts homework_name and status from one record.
func ParseSubmission(record gjson.Result) (Submission, error) {
	const op = "interpret"

	name := record.Get("homework_name")
	if name.Type != gjson.String || strings.TrimSpace(name.String()) == "" {
		return Submission{}, newError(KindMissingField, op, "homework record has no homework_name")
	}
	status := record.Get("status")
	if status.Type != gjson.String || strings.TrimSpace(status.String()) == "" {
		return Submission{}, newError(KindMissingField, op, "homework %q has no status", name.String())
	}
	return Submission{Name: name.String(), Status: status.String()}, nil
}

// Interpret renders the notification text for one submission record. It is
// ParseSubmission followed by Format; callers that also need the parsed
// Submission run the two steps themselves.
func Interpret(record gjson.Result) (string, error) {
	sub, err := ParseSubmission(record)
	if err != nil {
		return "", err
	}
	return Format(sub)
}

// Format renders the notification text for an already parsed submission.
func Format(sub Submission) (string, error) {
	verdict, ok := Verdict(sub.Status)
	if !ok {
		return "", newError(KindUnknownVerdict, "interpret", "unknown status %q for homework %q", sub.Status, sub.Name)
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", sub.Name, verdict), nil
}
