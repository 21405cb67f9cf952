package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Unknown is the sentinel stored for every field the source did not state.
const Unknown = "unknown"

type EventType string

const (
	EventHackathon  EventType = "hackathon"
	EventConference EventType = "conference"
	EventMeetup     EventType = "meetup"
	EventExpo       EventType = "expo"
	EventWorkshop   EventType = "workshop"
	EventUnknown    EventType = Unknown
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
	ModeHybrid  Mode = "hybrid"
	ModeUnknown Mode = Unknown
)

type EventDate struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Registration struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

type Prizes struct {
	TotalPool string `json:"total_pool"`
	Details   string `json:"details"`
}

// EventRecord is the canonical structured event. After Normalize every
// string field is either a value or Unknown, and TechStack is never nil.
type EventRecord struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Date         EventDate    `json:"date"`
	Registration Registration `json:"registration"`
	Prizes       Prizes       `json:"prizes"`
	EventType    EventType    `json:"event_type"`
	Mode         Mode         `json:"mode"`
	TechStack    []string     `json:"tech_stack"`
	Eligibility  string       `json:"eligibility"`
	Organizer    string       `json:"organizer"`
	SourceURL    string       `json:"source_url"`
	ProcessedAt  time.Time    `json:"processed_at"`
}

// UnmarshalJSON accepts the loose shapes language models tend to produce:
// date, registration and prizes as bare strings, tech_stack as a comma list,
// and processed_at as anything (unparseable values are dropped).
func (e *EventRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		Title        flexString      `json:"title"`
		Description  flexString      `json:"description"`
		Date         json.RawMessage `json:"date"`
		Registration json.RawMessage `json:"registration"`
		Prizes       json.RawMessage `json:"prizes"`
		EventType    flexString      `json:"event_type"`
		Mode         flexString      `json:"mode"`
		TechStack    json.RawMessage `json:"tech_stack"`
		Eligibility  flexString      `json:"eligibility"`
		Organizer    flexString      `json:"organizer"`
		SourceURL    flexString      `json:"source_url"`
		URL          flexString      `json:"url"`
		ProcessedAt  flexString      `json:"processed_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = EventRecord{
		Title:       string(aux.Title),
		Description: string(aux.Description),
		EventType:   EventType(aux.EventType),
		Mode:        Mode(aux.Mode),
		Eligibility: string(aux.Eligibility),
		Organizer:   string(aux.Organizer),
		SourceURL:   string(aux.SourceURL),
	}
	if e.SourceURL == "" {
		e.SourceURL = string(aux.URL)
	}

	if s, ok := asString(aux.Date); ok {
		e.Date.Start = s
	} else if len(aux.Date) > 0 {
		var d struct {
			Start flexString `json:"start"`
			End   flexString `json:"end"`
		}
		if json.Unmarshal(aux.Date, &d) == nil {
			e.Date = EventDate{Start: string(d.Start), End: string(d.End)}
		}
	}

	if s, ok := asString(aux.Registration); ok {
		e.Registration.Status = s
	} else if len(aux.Registration) > 0 {
		var r struct {
			Status flexString `json:"status"`
			URL    flexString `json:"url"`
		}
		if json.Unmarshal(aux.Registration, &r) == nil {
			e.Registration = Registration{Status: string(r.Status), URL: string(r.URL)}
		}
	}

	if s, ok := asString(aux.Prizes); ok {
		e.Prizes.Details = s
	} else if len(aux.Prizes) > 0 {
		var p struct {
			TotalPool flexString `json:"total_pool"`
			Details   flexString `json:"details"`
		}
		if json.Unmarshal(aux.Prizes, &p) == nil {
			e.Prizes = Prizes{TotalPool: string(p.TotalPool), Details: string(p.Details)}
		}
	}

	if s, ok := asString(aux.TechStack); ok {
		e.TechStack = strings.Split(s, ",")
	} else if len(aux.TechStack) > 0 {
		var items []flexString
		if json.Unmarshal(aux.TechStack, &items) == nil {
			for _, it := range items {
				e.TechStack = append(e.TechStack, string(it))
			}
		}
	}

	if ts := strings.TrimSpace(string(aux.ProcessedAt)); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.ProcessedAt = t
		}
	}
	return nil
}

// Normalize fills sentinels, canonicalizes enums and cleans the tech stack.
func (e EventRecord) Normalize() EventRecord {
	e.Title = orUnknown(e.Title)
	e.Description = orUnknown(e.Description)
	e.Date.Start = orUnknown(e.Date.Start)
	e.Date.End = orUnknown(e.Date.End)
	e.Registration.Status = orUnknown(e.Registration.Status)
	e.Registration.URL = orUnknown(e.Registration.URL)
	e.Prizes.TotalPool = orUnknown(e.Prizes.TotalPool)
	e.Prizes.Details = orUnknown(e.Prizes.Details)
	e.Eligibility = orUnknown(e.Eligibility)
	e.Organizer = orUnknown(e.Organizer)
	e.SourceURL = strings.TrimSpace(e.SourceURL)
	e.EventType = ParseEventType(string(e.EventType))
	e.Mode = ParseMode(string(e.Mode))
	e.TechStack = cleanStack(e.TechStack)
	return e
}

// Merge returns e with every unknown field filled from other. Descriptions
// keep the longer known text and tech stacks are unioned in order.
func (e EventRecord) Merge(other EventRecord) EventRecord {
	e = e.Normalize()
	other = other.Normalize()

	e.Title = pick(e.Title, other.Title)
	if other.Description != Unknown && (e.Description == Unknown || len(other.Description) > len(e.Description)) {
		e.Description = other.Description
	}
	e.Date.Start = pick(e.Date.Start, other.Date.Start)
	e.Date.End = pick(e.Date.End, other.Date.End)
	e.Registration.Status = pick(e.Registration.Status, other.Registration.Status)
	e.Registration.URL = pick(e.Registration.URL, other.Registration.URL)
	e.Prizes.TotalPool = pick(e.Prizes.TotalPool, other.Prizes.TotalPool)
	e.Prizes.Details = pick(e.Prizes.Details, other.Prizes.Details)
	e.Eligibility = pick(e.Eligibility, other.Eligibility)
	e.Organizer = pick(e.Organizer, other.Organizer)
	if e.EventType == EventUnknown {
		e.EventType = other.EventType
	}
	if e.Mode == ModeUnknown {
		e.Mode = other.Mode
	}
	e.TechStack = cleanStack(append(append([]string{}, e.TechStack...), other.TechStack...))
	if e.SourceURL == "" {
		e.SourceURL = other.SourceURL
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = other.ProcessedAt
	}
	return e
}

// Known counts the fields carrying a real value.
func (e EventRecord) Known() int {
	n := 0
	for _, v := range []string{
		e.Title, e.Description, e.Date.Start, e.Date.End,
		e.Registration.Status, e.Registration.URL, e.Prizes.TotalPool, e.Prizes.Details,
		e.Eligibility, e.Organizer, string(e.EventType), string(e.Mode),
	} {
		if v != "" && v != Unknown {
			n++
		}
	}
	if len(e.TechStack) > 0 {
		n++
	}
	return n
}

func ParseEventType(s string) EventType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hackathon", "hackathons", "hack":
		return EventHackathon
	case "conference", "summit", "conf":
		return EventConference
	case "meetup", "meet-up":
		return EventMeetup
	case "expo", "exhibition":
		return EventExpo
	case "workshop", "bootcamp":
		return EventWorkshop
	}
	return EventUnknown
}

func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online", "virtual", "remote":
		return ModeOnline
	case "offline", "in-person", "in person", "onsite", "on-site":
		return ModeOffline
	case "hybrid":
		return ModeHybrid
	}
	return ModeUnknown
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unknown) || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "null") {
		return Unknown
	}
	return s
}

func pick(cur, alt string) string {
	if cur == Unknown && alt != Unknown {
		return alt
	}
	return cur
}

func cleanStack(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		v := strings.TrimSpace(raw)
		if v == "" || strings.EqualFold(v, Unknown) {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// flexString decodes strings, numbers and booleans into their text form and
// treats null as empty.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if s, ok := asString(data); ok {
		*f = flexString(s)
		return nil
	}
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null" || trimmed == "":
		*f = ""
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		*f = ""
	default:
		*f = flexString(trimmed)
	}
	return nil
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
