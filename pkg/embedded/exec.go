package embedded

import (
	"strconv"

	"github.com/kasuganosora/sedna-go/pkg/embedded/xmltree"
)

// Names of the system documents that describe the database itself.
const (
	sysDocuments   = "$documents"
	sysCollections = "$collections"
)

// item 是一个结果项: 节点或原子值
type item struct {
	node *xmltree.Node
	atom string
}

func (it item) serialize() string {
	if it.node != nil {
		return xmltree.Serialize(it.node)
	}
	return it.atom
}

// run executes st against the catalog and returns the serialized result
// items. Updates return no items.
func run(cat *catalog, st *statement) ([]string, error) {
	switch st.kind {
	case stmtCreateDocument:
		return nil, cat.createDocument(documentRef{col: st.col, doc: st.doc}, xmltree.NewDocument())
	case stmtDropDocument:
		return nil, cat.dropDocument(documentRef{col: st.col, doc: st.doc})
	case stmtCreateCollection:
		return nil, cat.createCollection(st.col)
	case stmtDropCollection:
		return nil, cat.dropCollection(st.col)
	case stmtInsert:
		return nil, insert(cat, st)
	case stmtDelete:
		return nil, remove(cat, st)
	}

	items, err := eval(cat, st.expr)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.serialize()
	}
	return out, nil
}

func eval(cat *catalog, e *expr) ([]item, error) {
	var context []*xmltree.Node
	switch e.source {
	case srcString, srcNumber:
		return []item{{atom: e.literal}}, nil
	case srcCount:
		inner, err := eval(cat, e.inner)
		if err != nil {
			return nil, err
		}
		return []item{{atom: strconv.Itoa(len(inner))}}, nil
	case srcDoc:
		d, err := sourceDocument(cat, e)
		if err != nil {
			return nil, err
		}
		context = []*xmltree.Node{d}
	case srcCollection:
		docs, err := cat.collection(e.col)
		if err != nil {
			return nil, err
		}
		context = docs
	}

	nodes := xmltree.Eval(context, e.steps)
	items := make([]item, len(nodes))
	for i, n := range nodes {
		items[i] = item{node: n}
	}
	return items, nil
}

func sourceDocument(cat *catalog, e *expr) (*xmltree.Node, error) {
	if e.col == "" {
		switch e.doc {
		case sysDocuments:
			return documentsCatalog(cat)
		case sysCollections:
			return collectionsCatalog(cat)
		}
	}
	return cat.document(documentRef{col: e.col, doc: e.doc})
}

// documentsCatalog builds the $documents system document:
//
//	<documents><document name="d"/><collection name="c"><document name="x"/></collection></documents>
func documentsCatalog(cat *catalog) (*xmltree.Node, error) {
	root := &xmltree.Node{Kind: xmltree.ElementNode, Name: "documents"}
	names, err := cat.standalone()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		root.AppendChild(namedElement("document", name))
	}

	cols, err := cat.collections()
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		el := namedElement("collection", col)
		members, err := cat.members(col)
		if err != nil {
			return nil, err
		}
		for _, name := range members {
			el.AppendChild(namedElement("document", name))
		}
		root.AppendChild(el)
	}

	doc := xmltree.NewDocument()
	doc.AppendChild(root)
	return doc, nil
}

func collectionsCatalog(cat *catalog) (*xmltree.Node, error) {
	root := &xmltree.Node{Kind: xmltree.ElementNode, Name: "collections"}
	cols, err := cat.collections()
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		root.AppendChild(namedElement("collection", col))
	}
	doc := xmltree.NewDocument()
	doc.AppendChild(root)
	return doc, nil
}

func namedElement(tag, name string) *xmltree.Node {
	el := &xmltree.Node{Kind: xmltree.ElementNode, Name: tag}
	el.Attrs = []*xmltree.Node{{Kind: xmltree.AttributeNode, Name: "name", Value: name, Parent: el}}
	return el
}

func insert(cat *catalog, st *statement) error {
	nodes, err := xmltree.ParseFragment(st.fragment)
	if err != nil {
		return newError(codeSyntax, "%v", err)
	}
	targets, err := eval(cat, st.expr)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return newError(codeUpdateTarget, "target of insert is an empty sequence")
	}
	for _, t := range targets {
		if t.node == nil || (t.node.Kind != xmltree.ElementNode && t.node.Kind != xmltree.DocumentNode) {
			return newError(codeUpdateTarget, "target of insert must be an element or document node")
		}
		if err := checkStored(cat, t.node); err != nil {
			return err
		}
	}

	for _, t := range targets {
		for _, n := range nodes {
			t.node.AppendChild(n.Clone())
		}
		cat.markDirty(t.node)
	}
	return nil
}

func remove(cat *catalog, st *statement) error {
	targets, err := eval(cat, st.expr)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t.node == nil || t.node.Kind == xmltree.DocumentNode {
			return newError(codeUpdateTarget, "target of delete must be an element, attribute or text node")
		}
		if err := checkStored(cat, t.node); err != nil {
			return err
		}
	}
	for _, t := range targets {
		cat.markDirty(t.node)
		t.node.Remove()
	}
	return nil
}

// checkStored rejects update targets outside stored documents, such as nodes
// of $documents and $collections.
func checkStored(cat *catalog, n *xmltree.Node) error {
	if _, ok := cat.owner(n); !ok {
		return newError(codeUpdateTarget, "target of update is not a node of a stored document")
	}
	return nil
}
