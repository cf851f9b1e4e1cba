// Package document models the rich-text document tree stored in journal
// entries. The server does not interpret the content beyond checking shape
// and counting words; the tree is persisted verbatim.
package document

import (
	"encoding/json"
	"strings"
)

// Mark annotates a text node (bold, link, ...). Unknown keys are tolerated.
type Mark struct {
	Type  string                     `json:"type"`
	Attrs map[string]json.RawMessage `json:"attrs,omitempty"`
}

// Node is one node of the document tree. All fields are optional; editors
// attach arbitrary extra keys, which survive because the raw bytes are stored,
// not this struct.
type Node struct {
	Type    string                     `json:"type,omitempty"`
	Attrs   map[string]json.RawMessage `json:"attrs,omitempty"`
	Content []Node                     `json:"content,omitempty"`
	Marks   []Mark                     `json:"marks,omitempty"`
	Text    string                     `json:"text,omitempty"`
}

// Parse decodes raw JSON into a document tree. Malformed JSON or a
// wrong-shaped tree (non-object root, mistyped fields) is an error.
func Parse(raw []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// WordCount sums whitespace-separated words over all text nodes in the tree.
func (n *Node) WordCount() int {
	total := 0
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if cur.Text != "" {
			total += len(strings.Fields(cur.Text))
		}
		for i := range cur.Content {
			queue = append(queue, &cur.Content[i])
		}
	}
	return total
}
