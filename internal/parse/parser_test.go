package parse

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedCompleter replays canned replies in order, recording the
// prompts it receives.
type scriptedCompleter struct {
	replies []string
	errs    []error
	prompts []string
	calls   int
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

var testSchema = []string{"Name", "Age", "Email"}

func TestParseValidJSON(t *testing.T) {
	client := &scriptedCompleter{replies: []string{
		`{"Name": "John Doe", "Age": "25", "Email": "john@example.com"}`,
	}}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "some document text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record["Name"] != "John Doe" || record["Age"] != "25" || record["Email"] != "john@example.com" {
		t.Errorf("record = %v", record)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
}

func TestParseJSONWrappedInProse(t *testing.T) {
	// Models routinely wrap the object in commentary and markdown fences.
	client := &scriptedCompleter{replies: []string{
		"Sure! Here is the extracted data:\n```json\n" +
			`{"Name": "Jane", "Age": "", "Email": ""}` +
			"\n```\nLet me know if you need anything else.",
	}}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record["Name"] != "Jane" {
		t.Errorf("Name = %q, want Jane", record["Name"])
	}
}

func TestParseRetriesWithStricterPrompt(t *testing.T) {
	client := &scriptedCompleter{replies: []string{
		"I could not find any structured data in the text.",
		`{"Name": "John", "Age": "30", "Email": ""}`,
	}}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record["Name"] != "John" {
		t.Errorf("Name = %q, want John", record["Name"])
	}
	if client.calls != 2 {
		t.Fatalf("model calls = %d, want 2", client.calls)
	}
	if !strings.Contains(client.prompts[1], "previous reply was not valid JSON") {
		t.Error("retry prompt lacks the strict instruction")
	}
}

func TestParseFallsBackToEmptyFields(t *testing.T) {
	// Two unusable replies: the parser absorbs the failure and returns a
	// total record instead of an error.
	client := &scriptedCompleter{replies: []string{
		"no json here",
		"still no json",
	}}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	for _, field := range testSchema {
		value, ok := record[field]
		if !ok {
			t.Errorf("field %q missing from fallback record", field)
		}
		if value != "" {
			t.Errorf("field %q = %q, want empty", field, value)
		}
	}
}

func TestParseModelErrorThenSuccess(t *testing.T) {
	client := &scriptedCompleter{
		errs:    []error{errors.New("connection refused"), nil},
		replies: []string{"", `{"Name": "X", "Age": "", "Email": ""}`},
	}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record["Name"] != "X" {
		t.Errorf("Name = %q, want X", record["Name"])
	}
}

func TestParseSchemaAdherence(t *testing.T) {
	// Extra fields are dropped, missing ones filled with the empty
	// string, and non-string values rendered textually.
	client := &scriptedCompleter{replies: []string{
		`{"Name": "John", "Age": 25, "Hobby": "chess", "Active": true}`,
	}}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record["Age"] != "25" {
		t.Errorf("Age = %q, want 25", record["Age"])
	}
	if record["Email"] != "" {
		t.Errorf("Email = %q, want empty", record["Email"])
	}
	if _, ok := record["Hobby"]; ok {
		t.Error("invented field Hobby kept in record")
	}
	if len(record) != len(testSchema) {
		t.Errorf("record has %d fields, want %d", len(record), len(testSchema))
	}
}

func TestParseNullAndQuotedValues(t *testing.T) {
	client := &scriptedCompleter{replies: []string{
		`{"Name": "'John'", "Age": null, "Email": " x@y.z "}`,
	}}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", testSchema)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record["Name"] != "John" {
		t.Errorf("Name = %q, want quotes stripped", record["Name"])
	}
	if record["Age"] != "" {
		t.Errorf("Age = %q, want empty for null", record["Age"])
	}
	if record["Email"] != "x@y.z" {
		t.Errorf("Email = %q, want trimmed", record["Email"])
	}
}

func TestParseEmptySchema(t *testing.T) {
	client := &scriptedCompleter{}
	p := NewParser(client)

	record, err := p.Parse(context.Background(), "text", nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(record) != 0 {
		t.Errorf("record = %v, want empty", record)
	}
	if client.calls != 0 {
		t.Errorf("model calls = %d, want 0 for empty schema", client.calls)
	}
}

func TestParseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedCompleter{replies: []string{`{"Name": "x"}`}}
	p := NewParser(client)

	if _, err := p.Parse(ctx, "text", testSchema); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			reply: `{"a": "b"}`,
			want:  `{"a": "b"}`,
			ok:    true,
		},
		{
			name:  "nested braces",
			reply: `prefix {"a": {"b": "c"}} suffix`,
			want:  `{"a": {"b": "c"}}`,
			ok:    true,
		},
		{
			name:  "braces inside string values",
			reply: `{"a": "literal } brace"}`,
			want:  `{"a": "literal } brace"}`,
			ok:    true,
		},
		{
			name:  "escaped quote inside string",
			reply: `{"a": "he said \"}\" loudly"}`,
			want:  `{"a": "he said \"}\" loudly"}`,
			ok:    true,
		},
		{
			name:  "no object",
			reply: "plain prose without braces",
			ok:    false,
		},
		{
			name:  "unbalanced",
			reply: `{"a": "b"`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.reply)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
