/**
 * Structured Parser - coerces free-form model output into a strict schema
 *
 * The model is an untrusted producer: its reply may be prose, malformed
 * JSON, or JSON with missing and invented fields. The parser runs a
 * bounded decode-validate-repair loop and always returns a total record:
 * every requested field present, extras discarded, failures absorbed as
 * all-empty values. Nothing past this boundary ever sees a parse error.
 */

package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/veridoc/docverify/internal/document"
	"github.com/veridoc/docverify/internal/logging"
)

// maxAttempts caps the decode-validate-repair loop: one normal attempt,
// one retry with a stricter instruction.
const maxAttempts = 2

// Parser maps recognized text onto a caller-defined field schema.
type Parser struct {
	client ChatCompleter
	logger *logging.Logger
}

// NewParser creates a parser backed by the given model client.
func NewParser(client ChatCompleter) *Parser {
	return &Parser{
		client: client,
		logger: logging.NewLogger("parse"),
	}
}

// Parse extracts the schema fields from recognized document text. The
// returned record always contains every schema field; values default to
// the empty string when the model fails or omits them.
func (p *Parser) Parse(ctx context.Context, text string, schema []string) (document.ExtractedRecord, error) {
	record := document.NewExtractedRecord(schema)
	if len(schema) == 0 {
		return record, nil
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		prompt := buildPrompt(text, schema, attempt > 1)

		reply, err := p.client.Complete(ctx, prompt)
		if err != nil {
			p.logger.Warn("Model call failed", "attempt", attempt, "error", err)
			continue
		}

		fields, ok := coerceFields(reply)
		if !ok {
			p.logger.Warn("Model output not parseable as field mapping", "attempt", attempt, "replyLength", len(reply))
			continue
		}

		// Schema adherence: keep requested fields, drop everything else,
		// fill gaps with the empty string.
		for _, name := range schema {
			record[name] = normalizeValue(fields[name])
		}
		return record, nil
	}

	p.logger.Warn("Parser fell back to empty fields", "attempts", maxAttempts, "fields", len(schema))
	return record, nil
}

// buildPrompt renders the extraction instruction. The strict variant is
// used on retry after an unparseable reply.
func buildPrompt(text string, schema []string, strict bool) string {
	var b strings.Builder

	b.WriteString("You are a strictly compliant JSON data extractor.\n\n")
	b.WriteString("INPUT TEXT:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("TASK: Extract the following fields from the input text: ")
	b.WriteString(strings.Join(schema, ", "))
	b.WriteString(".\n")
	b.WriteString("Values must be plain strings copied from the text. ")
	b.WriteString("Use \"\" for any field not present in the text.\n\n")
	b.WriteString("OUTPUT: Return ONLY a JSON object with exactly these keys:\n{\n")
	for i, name := range schema {
		fmt.Fprintf(&b, "  %q: \"string\"", name)
		if i < len(schema)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")

	if strict {
		b.WriteString("\nYour previous reply was not valid JSON. ")
		b.WriteString("Respond with the JSON object only. No introduction, no explanation, no markdown fences.\n")
	}

	return b.String()
}

// coerceFields digs a field mapping out of a free-form model reply.
// Returns false when no usable JSON object is present.
func coerceFields(reply string) (map[string]string, bool) {
	raw, ok := extractJSONObject(reply)
	if !ok {
		return nil, false
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, false
	}

	fields := make(map[string]string, len(decoded))
	for name, value := range decoded {
		fields[name] = stringifyValue(value)
	}
	return fields, true
}

// extractJSONObject returns the first balanced {...} object in the reply.
// Models routinely wrap JSON in prose or markdown fences.
func extractJSONObject(reply string) (string, bool) {
	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return reply[start : i+1], true
			}
		}
	}
	return "", false
}

// stringifyValue renders a decoded JSON value as the field string. No type
// coercion beyond textual rendering: ages and numbers stay strings.
func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		// Nested objects or arrays: keep the JSON rendering verbatim.
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// normalizeValue trims surrounding whitespace and quote characters.
func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"'`)
	return strings.TrimSpace(value)
}
