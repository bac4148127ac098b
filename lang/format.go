package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes the tree rooted at n, one node per line, children indented
// by indent spaces below their parent.
func (n *Node) Format(_ context.Context, w io.Writer, indent int) error {
	return formatNode(n, w, max(indent, 1), 0)
}

func formatNode(n *Node, w io.Writer, indent, depth int) error {
	line := n.String()

	switch n.Kind {
	case NodeMethod:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Type.Text() + " " + p.Name.Text()
		}

		line += " (" + strings.Join(params, ", ") + ")"
		if !n.Type.IsZero() {
			line += " -> " + n.Type.Text()
		}

	case NodeField:
		line += " " + n.Type.Text()

	case NodeAst, NodeInclude:
		if n.File != "" {
			line += " " + n.File
		}
	}

	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", depth*indent), line); err != nil {
		return err
	}

	for _, c := range n.Children {
		if err := formatNode(c, w, indent, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// FormatJSON writes the tree rooted at n as JSON.
func (n *Node) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(n, "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(n)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes the tree rooted at n as YAML. An indent of zero selects
// flow style.
func (n *Node) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, n.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

// MarshalJSON implements json.Marshaler for Node.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToMap())
}

// ToMap converts the tree rooted at n to maps and slices. Only the payload
// fields meaningful for each kind are included.
func (n *Node) ToMap() map[string]any {
	m := map[string]any{"kind": n.Kind.String()}

	if n.Kind != NodeAst && n.Kind != NodeExpression {
		m["line"] = n.Line()
	}

	switch n.Kind {
	case NodeAst:
		m["file"] = n.File

	case NodeInclude:
		m["name"] = n.Token.Text()
		m["file"] = n.File

	case NodeMethod:
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = map[string]any{"type": p.Type.Text(), "name": p.Name.Text()}
		}

		m["name"] = n.Name()
		m["params"] = params

		if !n.Type.IsZero() {
			m["returns"] = n.Type.Text()
		}

	case NodeField:
		m["name"] = n.Name()
		m["type"] = n.Type.Text()

	case NodeLocalDereference:
		path := make([]any, len(n.Path))
		for i, t := range n.Path {
			path[i] = t.Text()
		}

		m["path"] = path

	case NodeConstant:
		m["type"] = n.Constant.String()
		m["value"] = n.Token.Text()

	case NodeNote:
		m["duration"] = n.Duration

	case NodePlaceholder:
		if n.Duration >= 0 {
			m["duration"] = n.Duration
		}

	case NodeStruct, NodeMethodCall, NodeLocalAssignment, NodeOperator,
		NodeNoteSequenceVariation:
		m["name"] = n.Name()
	}

	if len(n.Children) > 0 {
		children := make([]any, len(n.Children))
		for i, c := range n.Children {
			children[i] = c.ToMap()
		}

		m["children"] = children
	}

	return m
}
