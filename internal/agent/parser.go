package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/terra-clan/daywise/internal/models"
)

// DayResponse is one day of a validated model response
type DayResponse struct {
	DayNumber int             `json:"dayNumber"`
	Topics    []TopicResponse `json:"topics"`
}

// TopicResponse is one topic of a validated model response, defaults applied
type TopicResponse struct {
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
	Resources        []string `json:"resources"`
}

// RoadmapResponse is the top-level wire shape returned by the model
type RoadmapResponse struct {
	Days []DayResponse `json:"days"`
}

// ParseError reports model output that does not match the expected schema
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Raw decode targets. Pointers distinguish missing fields from zero values.
type rawResponse struct {
	Days *[]rawDay `json:"days"`
}

type rawDay struct {
	DayNumber *int        `json:"dayNumber"`
	Topics    *[]rawTopic `json:"topics"`
}

type rawTopic struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	EstimatedMinutes *int     `json:"estimatedMinutes"`
	Resources        []string `json:"resources"`
}

// ParseResponse turns raw model output into validated days.
// It strips code fences and surrounding prose, tolerates trailing commas and
// comments, ignores unknown fields and applies topic defaults. Parsing is
// all-or-nothing: any schema violation fails the whole response.
func ParseResponse(raw string) ([]DayResponse, error) {
	cleaned := cleanResponse(raw)
	if cleaned == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	standard, err := hujson.Standardize([]byte(cleaned))
	if err != nil {
		return nil, &ParseError{Reason: "response is not valid JSON", Err: err}
	}

	var resp rawResponse
	if err := json.NewDecoder(bytes.NewReader(standard)).Decode(&resp); err != nil {
		return nil, &ParseError{Reason: "response does not match roadmap schema", Err: err}
	}
	if resp.Days == nil {
		return nil, &ParseError{Reason: `missing "days"`}
	}

	days := make([]DayResponse, 0, len(*resp.Days))
	seen := make(map[int]bool, len(*resp.Days))
	for i, rd := range *resp.Days {
		if rd.DayNumber == nil {
			return nil, &ParseError{Reason: fmt.Sprintf(`day %d: missing "dayNumber"`, i)}
		}
		if *rd.DayNumber < 1 {
			return nil, &ParseError{Reason: fmt.Sprintf("day %d: invalid dayNumber %d", i, *rd.DayNumber)}
		}
		if seen[*rd.DayNumber] {
			return nil, &ParseError{Reason: fmt.Sprintf("day %d: duplicate dayNumber %d", i, *rd.DayNumber)}
		}
		seen[*rd.DayNumber] = true

		if rd.Topics == nil {
			return nil, &ParseError{Reason: fmt.Sprintf(`day %d: missing "topics"`, *rd.DayNumber)}
		}

		topics := make([]TopicResponse, 0, len(*rd.Topics))
		for j, rt := range *rd.Topics {
			topic, err := normalizeTopic(rt)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("day %d, topic %d: %s", *rd.DayNumber, j, err)}
			}
			topics = append(topics, topic)
		}

		days = append(days, DayResponse{DayNumber: *rd.DayNumber, Topics: topics})
	}

	return days, nil
}

func normalizeTopic(rt rawTopic) (TopicResponse, error) {
	if rt.Title == nil || strings.TrimSpace(*rt.Title) == "" {
		return TopicResponse{}, fmt.Errorf(`missing "title"`)
	}

	topic := TopicResponse{
		Title:            strings.TrimSpace(*rt.Title),
		EstimatedMinutes: models.DefaultEstimatedMinutes,
		Resources:        []string{},
	}
	if rt.Description != nil {
		topic.Description = *rt.Description
	}
	if rt.EstimatedMinutes != nil && *rt.EstimatedMinutes > 0 {
		topic.EstimatedMinutes = *rt.EstimatedMinutes
	}
	for _, res := range rt.Resources {
		if res = strings.TrimSpace(res); res != "" {
			topic.Resources = append(topic.Resources, res)
		}
	}
	return topic, nil
}

// cleanResponse removes code fences and any prose around the JSON object
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}
