package tools

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Binary is raw content returned by a tool. Unlabelled content that is valid
// UTF-8 is returned as text, everything else is base64 encoded behind its
// label.
type Binary struct {
	Label string
	Data  []byte
}

const defaultBinaryLabel = "Binary file"

// Text renders the content for a text block.
func (b Binary) Text() string {
	if b.Label == "" && utf8.Valid(b.Data) {
		return string(b.Data)
	}
	label := b.Label
	if label == "" {
		label = defaultBinaryLabel
	}
	return fmt.Sprintf("%s (base64): %s", label, base64.StdEncoding.EncodeToString(b.Data))
}

// Action renders the outcome of an operation that only reports success,
// e.g. "Consumption Logic App 'orders' created: true".
func Action(what string, ok bool) string {
	return fmt.Sprintf("%s: %t", what, ok)
}

// Render turns a tool result into the text of its single content block.
// Strings pass through, binary content is decoded or encoded, and anything
// else becomes indented JSON.
func Render(result interface{}) (string, error) {
	switch v := result.(type) {
	case nil:
		return "null", nil
	case string:
		return v, nil
	case Binary:
		return v.Text(), nil
	case []byte:
		return Binary{Data: v}.Text(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
