package genai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
)

// TimestampLayout is how the current time is shown to the model.
const TimestampLayout = "2006-01-02 15:04:05"

// persona is fixed text the model must answer with for identity questions.
const persona = `Your name is MetroMate. You are a helpful LINE bot for university routine, faculty, course, and bus info. If anyone asks about your name, always reply: 'Hi, I'm MetroMate.'
If anyone asks about your developer, reply: 'I was developed by Abu Ubayda and Nahidul Islam Rony.'`

// documentLabels names each document in the prompt.
var documentLabels = []struct {
	doc   dataset.Document
	label string
}{
	{dataset.DocRoutine, "Routine"},
	{dataset.DocFaculty, "Faculty"},
	{dataset.DocCourses, "Courses"},
	{dataset.DocBuses, "Bus Schedule"},
}

// BuildPrompt renders req as a single prompt. Documents are embedded as
// compact JSON so the model sees the same field names as the data files.
func BuildPrompt(req AnswerRequest) (string, error) {
	snap := req.Snapshot
	if snap == nil {
		snap = dataset.EmptySnapshot()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[SYSTEM: Current date and time is %s]\n", req.Now.Format(TimestampLayout))
	b.WriteString(persona)
	b.WriteString("\nHere is the data:\n")

	for _, d := range documentLabels {
		raw, err := snap.Encode(d.doc)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", d.doc, err)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return "", fmt.Errorf("compact %s: %w", d.doc, err)
		}
		fmt.Fprintf(&b, "%s: %s\n", d.label, compact.String())
	}

	if len(req.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range req.History {
			fmt.Fprintf(&b, "[%s] %s\n", turn.Role, turn.Message)
		}
	}

	fmt.Fprintf(&b, "User question: %s\n", req.Question)
	b.WriteString("Answer in Bangla if the question is in Bangla, otherwise in English.")
	return b.String(), nil
}
