package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apex/log"
)

// Shape names the response envelope a piece of text was found in.
type Shape string

const (
	// ShapeWrappedParts is response.candidates[0].content.parts[0].text
	ShapeWrappedParts Shape = "wrapped_parts"
	// ShapeDirectParts is candidates[0].content.parts[0].text, what the SDK returns.
	ShapeDirectParts Shape = "direct_parts"
	// ShapeWrappedContentText is response.candidates[0].content.text
	ShapeWrappedContentText Shape = "wrapped_content_text"
	// ShapeFallback means no known path held text.
	ShapeFallback Shape = "fallback"
)

// Result is the outcome of an extraction. On the fallback path Text holds the
// whole envelope serialized as indented JSON and is never empty. A matched text
// that is only whitespace trims to "".
type Result struct {
	Text  string
	Shape Shape
}

// Fallback reports whether no known envelope shape matched.
func (r Result) Fallback() bool {
	return r.Shape == ShapeFallback
}

func (r Result) String() string {
	return r.Text
}

// step is one hop in a path: a map key, or a slice index when key is empty.
type step struct {
	key   string
	index int
}

func field(key string) step { return step{key: key} }
func item(i int) step       { return step{index: i} }

type matcher struct {
	shape Shape
	path  []step
}

// matchers are tried in order, the first hit wins.
var matchers = []matcher{
	{
		shape: ShapeWrappedParts,
		path: []step{
			field("response"), field("candidates"), item(0),
			field("content"), field("parts"), item(0), field("text"),
		},
	},
	{
		shape: ShapeDirectParts,
		path: []step{
			field("candidates"), item(0),
			field("content"), field("parts"), item(0), field("text"),
		},
	},
	{
		shape: ShapeWrappedContentText,
		path: []step{
			field("response"), field("candidates"), item(0),
			field("content"), field("text"),
		},
	},
}

// match walks the path and returns the string at its end, if any.
func (m matcher) match(tree any) (string, bool) {
	cur := tree
	for _, s := range m.path {
		switch node := cur.(type) {
		case map[string]any:
			if s.key == "" {
				return "", false
			}
			next, ok := node[s.key]
			if !ok {
				return "", false
			}
			cur = next
		case []any:
			if s.key != "" || s.index < 0 || s.index >= len(node) {
				return "", false
			}
			cur = node[s.index]
		default:
			return "", false
		}
	}
	text, ok := cur.(string)
	return text, ok && text != ""
}

// Extract pulls the generated text out of an upstream response envelope.
// resp may be a typed SDK response, a decoded JSON tree, raw JSON bytes, or nil.
// It never fails: when no shape matches it logs a diagnostic and returns the
// serialized envelope instead.
func Extract(resp any) Result {
	return ExtractWith(log.Log, resp)
}

// ExtractWith is Extract with the fallback diagnostic written to logger, so
// callers can attach their own fields to the single record.
func ExtractWith(logger log.Interface, resp any) Result {
	if tree, ok := normalize(resp); ok {
		for _, m := range matchers {
			if text, ok := m.match(tree); ok {
				return Result{Text: clean(text), Shape: m.shape}
			}
		}
	}

	logger.WithFields(log.Fields{
		"type":   fmt.Sprintf("%T", resp),
		"shapes": len(matchers),
	}).Error("no text found in response")

	return Result{Text: serialize(resp), Shape: ShapeFallback}
}

// Text is Extract(resp).Text.
func Text(resp any) string {
	return Extract(resp).Text
}

// clean turns literal "\n\n" escapes into paragraph breaks and trims the result.
func clean(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, `\n\n`, "\n\n"))
}

// normalize converts resp into a generic JSON tree of maps, slices and scalars.
func normalize(resp any) (any, bool) {
	var raw []byte
	switch v := resp.(type) {
	case nil:
		return nil, true
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		raw = b
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, false
	}
	return tree, true
}

// serialize renders resp as indented JSON for the fallback path.
func serialize(resp any) string {
	if b, ok := resp.([]byte); ok && json.Valid(b) {
		resp = json.RawMessage(b)
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", resp)
	}
	return string(out)
}
