// Copyright 2025 Mekan Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/mekanlabs/steward/pkg/rag"
)

const systemPrompt = `You are a helpful personal assistant.
You can manage the user's todos and calendar with the provided tools:
- Use create_todo when the user asks to remember, track, or be reminded of a task.
- Use create_event when the user schedules something at a specific time. Express times as full ISO 8601 datetimes; if no end time is given, set the end one hour after the start.
- Use list_todos or list_events when the user asks what is on their list or schedule.
If no tool is needed, answer the question directly.
Use the provided notes context when it is relevant; do not invent facts that are not in the context or the conversation.`

const composeSystemPrompt = `You are a helpful personal assistant.
Summarize the outcome of the tool calls for the user in one or two short sentences.
If a tool reported an error, apologize briefly and say what went wrong.`

// buildContextBlock formats retrieved chunks for the model.
func buildContextBlock(chunks []rag.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Context from the user's notes:\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", c.Source, strings.TrimSpace(c.Content))
	}
	return b.String()
}

// datetime layouts accepted by the explicit event command.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse datetime from %q, use ISO format like '2025-11-14 17:30'", value)
}

// humanDateTimeRange renders a range like "tomorrow, 9am-10am".
func humanDateTimeRange(start, end time.Time) string {
	now := time.Now()
	today := now.Truncate(24 * time.Hour)
	startDay := start.Truncate(24 * time.Hour)

	var dateLabel string
	switch {
	case startDay.Equal(today):
		dateLabel = "today"
	case startDay.Equal(today.Add(24 * time.Hour)):
		dateLabel = "tomorrow"
	default:
		dateLabel = start.Format("Jan 2")
	}

	return fmt.Sprintf("%s, %s-%s", dateLabel, humanTime(start), humanTime(end))
}

func humanTime(t time.Time) string {
	hour := t.Format("3")
	ampm := strings.ToLower(t.Format("PM"))
	if t.Minute() == 0 {
		return hour + ampm
	}
	return fmt.Sprintf("%s:%02d%s", hour, t.Minute(), ampm)
}
