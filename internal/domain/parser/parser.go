// Package parser turns an opaque agent reply into a candidate object.
//
// A reply is first decoded strictly as a single JSON object. When that fails
// the first balanced-brace substring is decoded instead. Only the first such
// substring is tried; later objects in the same reply are ignored.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/reviewdesk/internal/domain/model"
)

// Strategy names the step that produced a candidate.
type Strategy uint8

const (
	StrategyNone Strategy = iota
	StrategyStrict
	StrategyFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyStrict:
		return "strict"
	case StrategyFallback:
		return "fallback"
	default:
		return "none"
	}
}

var (
	errTrailingData = errors.New("trailing data after object")
	errNotObject    = errors.New("not a JSON object")
)

// Parse returns the candidate object carried by raw.
func Parse(raw string) (model.Candidate, error) {
	c, _, err := ParseDetailed(raw)
	return c, err
}

// ParseDetailed is Parse that also reports which strategy succeeded.
func ParseDetailed(raw string) (model.Candidate, Strategy, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, StrategyNone, &ParseError{Raw: raw, Reason: "empty reply"}
	}

	if c, err := decodeObject(text); err == nil {
		return c, StrategyStrict, nil
	}

	sub, ok := firstObject(text)
	if !ok {
		return nil, StrategyNone, &ParseError{Raw: raw, Reason: "no balanced object found"}
	}
	c, err := decodeObject(sub)
	if err != nil {
		return nil, StrategyNone, &ParseError{Raw: raw, Reason: fmt.Sprintf("extracted object: %v", err)}
	}
	return c, StrategyFallback, nil
}

// ParseEnvelope returns every object listed under key in a reply shaped like
// {"<key>": [...]}. A reply whose object lacks key is returned as a single
// candidate.
func ParseEnvelope(raw, key string) ([]model.Candidate, error) {
	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	list, ok := c[key]
	if !ok {
		return []model.Candidate{c}, nil
	}
	items, ok := list.([]any)
	if !ok {
		return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("envelope key %q is not a list", key)}
	}
	out := make([]model.Candidate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("envelope item %d is not an object", i)}
		}
		out = append(out, model.Candidate(obj))
	}
	return out, nil
}

func decodeObject(text string) (model.Candidate, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return model.Candidate(obj), nil
}
