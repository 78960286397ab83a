package studyaid

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a patient study coach for university students. Be accurate and concise."

func prompt(kind Kind, topics []string, count int) string {
	list := strings.Join(topics, ", ")
	switch kind {
	case KindFlashcards:
		return fmt.Sprintf(`Create %d flashcards covering: %s.
Respond with only a JSON array of objects with "front" and "back" string fields.`, count, list)
	case KindQuiz:
		return fmt.Sprintf(`Write a %d-question multiple choice quiz covering: %s.
Respond with only a JSON array of objects with "question", "options" (4 strings), "answer" (one of the options) and "explanation" fields.`, count, list)
	case KindSummary:
		return fmt.Sprintf("Summarize the key ideas a student must know about: %s. Use short paragraphs and a closing checklist.", list)
	default:
		return fmt.Sprintf("Write short, catchy song lyrics that help a student remember the key facts about: %s.", list)
	}
}

// extractJSON pulls the JSON payload out of a model reply, dropping
// markdown code fences and any prose around it.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	if end := strings.LastIndexByte(s, closer); end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// decodeList accepts either a bare array or an object wrapping the array
// under field.
func decodeList[T any](reply, field string, dst *[]T) error {
	raw := extractJSON(reply)
	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		var wrapped map[string]json.RawMessage
		if json.Unmarshal([]byte(raw), &wrapped) != nil || wrapped[field] == nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		if err := json.Unmarshal(wrapped[field], &list); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}
	if len(list) == 0 {
		return fmt.Errorf("%w: empty list", ErrMalformedOutput)
	}
	*dst = list
	return nil
}
