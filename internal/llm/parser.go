package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/normalize"
)

const finalAnswerKey = "final_answer"

// Parsed is the outcome of parsing one answer.
type Parsed struct {
	Results []model.MatchResult
	Dropped int // segments discarded as incomplete or malformed
}

// ResponseParser turns a raw answer into match results. Invalid segments
// are dropped individually; an error means nothing could be read at all.
type ResponseParser interface {
	Parse(raw string) (Parsed, error)
}

// NewParser returns the parser matching the response mode the prompt asked for.
func NewParser(mode model.ResponseMode) (ResponseParser, error) {
	switch mode {
	case model.ModeSchema, "":
		return SchemaParser{}, nil
	case model.ModeFreeText:
		return FreeTextParser{}, nil
	default:
		return nil, fmt.Errorf("unknown response mode: %s", mode)
	}
}

// SchemaParser reads {"final_answer": [...]} documents. Each object must
// carry exactly the keys of model.MatchFields.
type SchemaParser struct{}

// Parse implements ResponseParser.
func (SchemaParser) Parse(raw string) (Parsed, error) {
	content := cleanMarkdownWrapper(raw)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return Parsed{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	answer, ok := doc[finalAnswerKey]
	if !ok {
		return Parsed{}, fmt.Errorf("%w: no %s property", ErrMalformedResponse, finalAnswerKey)
	}

	var items []json.RawMessage
	switch firstByte(answer) {
	case '[':
		if err := json.Unmarshal(answer, &items); err != nil {
			return Parsed{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	case '{':
		items = []json.RawMessage{answer}
	default:
		return Parsed{}, fmt.Errorf("%w: %s is neither an array nor an object", ErrMalformedResponse, finalAnswerKey)
	}

	var parsed Parsed
	for _, item := range items {
		result, ok := decodeResult(item)
		if !ok {
			parsed.Dropped++
			continue
		}
		parsed.Results = append(parsed.Results, result)
	}

	return parsed, nil
}

func decodeResult(item json.RawMessage) (model.MatchResult, bool) {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || len(fields) != len(model.MatchFields) {
		return model.MatchResult{}, false
	}

	var result model.MatchResult
	for _, f := range model.MatchFields {
		v, ok := fields[f.Key]
		if !ok {
			return model.MatchResult{}, false
		}
		var text string
		switch tv := v.(type) {
		case string:
			text = tv
		case json.Number:
			text = tv.String()
		default:
			return model.MatchResult{}, false
		}
		result.Set(f.Key, text)
	}

	return clean(result), true
}

// FreeTextParser reads blocks of "Label: value" lines in the order of
// model.MatchFields. A block starts at the first field's label and ends at
// the next one, a "---" line or the end of the answer.
type FreeTextParser struct{}

// Parse implements ResponseParser.
func (FreeTextParser) Parse(raw string) (Parsed, error) {
	var (
		parsed  Parsed
		block   *textBlock
		started bool
	)

	flush := func() {
		if block == nil {
			return
		}
		if result, ok := block.result(); ok {
			parsed.Results = append(parsed.Results, result)
		} else {
			parsed.Dropped++
		}
		block = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if isSeparator(line) {
			flush()
			continue
		}

		idx, rest, ok := matchLabel(line)
		switch {
		case ok && idx == 0:
			flush()
			block = &textBlock{}
			block.start(0, rest)
			started = true
		case ok && block != nil:
			block.start(idx, rest)
		case block != nil:
			block.appendText(line)
		}
	}
	flush()

	if !started {
		return Parsed{}, fmt.Errorf("%w: no %q label found", ErrMalformedResponse, model.MatchFields[0].Label)
	}

	return parsed, nil
}

// textBlock accumulates the fields of one free-text answer.
type textBlock struct {
	values  []strings.Builder
	invalid bool
}

func (b *textBlock) start(idx int, text string) {
	if idx != len(b.values) {
		b.invalid = true
		return
	}
	b.values = append(b.values, strings.Builder{})
	b.values[idx].WriteString(text)
}

func (b *textBlock) appendText(line string) {
	if b.invalid || len(b.values) == 0 {
		return
	}
	cur := &b.values[len(b.values)-1]
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if cur.Len() > 0 {
		cur.WriteString(" ")
	}
	cur.WriteString(line)
}

func (b *textBlock) result() (model.MatchResult, bool) {
	if b.invalid || len(b.values) != len(model.MatchFields) {
		return model.MatchResult{}, false
	}

	var result model.MatchResult
	for i, f := range model.MatchFields {
		result.Set(f.Key, b.values[i].String())
	}
	result = clean(result)
	if result.AccountNumber == "" {
		return model.MatchResult{}, false
	}
	return result, true
}

// listMarker matches a numbered list prefix such as "1." or "12)".
var listMarker = regexp.MustCompile(`^\d+[.)]`)

// matchLabel recognizes a line starting with a field label followed by a
// colon, tolerating bullets, list numbers and markdown emphasis around the label.
func matchLabel(line string) (int, string, bool) {
	s := strings.TrimLeft(line, " \t-*_#>")
	if loc := listMarker.FindStringIndex(s); loc != nil {
		s = strings.TrimLeft(s[loc[1]:], " \t-*_#>")
	}
	for i, f := range model.MatchFields {
		if len(s) < len(f.Label) || !strings.EqualFold(s[:len(f.Label)], f.Label) {
			continue
		}
		after := strings.TrimLeft(s[len(f.Label):], " \t*_")
		if !strings.HasPrefix(after, ":") {
			continue
		}
		return i, strings.TrimSpace(after[1:]), true
	}
	return 0, "", false
}

func isSeparator(line string) bool {
	s := strings.TrimSpace(line)
	return len(s) >= 3 && strings.Trim(s, "-") == ""
}

// clean strips markdown emphasis and canonicalizes the join keys.
func clean(r model.MatchResult) model.MatchResult {
	return model.MatchResult{
		AccountNumber: normalize.Number(normalize.StripBold(r.AccountNumber)),
		Label:         normalize.Text(r.Label),
		COACode:       normalize.Number(normalize.StripBold(r.COACode)),
		COALabel:      normalize.Text(r.COALabel),
		Justification: normalize.Text(r.Justification),
	}
}

// cleanMarkdownWrapper removes a ```json fence around a JSON answer.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
