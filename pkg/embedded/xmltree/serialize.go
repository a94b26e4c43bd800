package xmltree

import (
	"strings"
)

// Serialize renders n the way the engine returns result items. Document nodes
// carry the XML declaration, attributes render as name="value" and text nodes
// render as their unescaped string value.
func Serialize(n *Node) string {
	var sb strings.Builder
	switch n.Kind {
	case DocumentNode:
		sb.WriteString(XMLDeclaration)
		for _, c := range n.Children {
			writeNode(&sb, c)
		}
	case AttributeNode:
		writeAttr(&sb, n)
	case TextNode:
		sb.WriteString(n.Value)
	default:
		writeNode(&sb, n)
	}
	return sb.String()
}

// Marshal renders the content of a document node without the declaration,
// as stored by the engine.
func Marshal(doc *Node) string {
	var sb strings.Builder
	for _, c := range doc.Children {
		writeNode(&sb, c)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case TextNode:
		sb.WriteString(escapeText(n.Value))
		return
	case AttributeNode:
		writeAttr(sb, n)
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.Name)
	for _, a := range n.Attrs {
		sb.WriteByte(' ')
		writeAttr(sb, a)
	}
	if len(n.Children) == 0 {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	for _, c := range n.Children {
		writeNode(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Name)
	sb.WriteByte('>')
}

func writeAttr(sb *strings.Builder, a *Node) {
	sb.WriteString(a.Name)
	sb.WriteString(`="`)
	sb.WriteString(escapeAttr(a.Value))
	sb.WriteByte('"')
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#10;", "\t", "&#9;")
)

func escapeText(s string) string { return textEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }
