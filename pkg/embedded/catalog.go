package embedded

import (
	"errors"
	"sort"
	"strings"

	"github.com/kasuganosora/sedna-go/pkg/embedded/store"
	"github.com/kasuganosora/sedna-go/pkg/embedded/xmltree"
)

// Key layout inside one database:
//
//	<db> \x00 d \x00 <doc>            standalone document
//	<db> \x00 c \x00 <col>            collection marker
//	<db> \x00 m \x00 <col> \x00 <doc> document in a collection
const sep = "\x00"

func docKey(db, col, doc string) string {
	if col == "" {
		return db + sep + "d" + sep + doc
	}
	return db + sep + "m" + sep + col + sep + doc
}

func collectionKey(db, col string) string {
	return db + sep + "c" + sep + col
}

func memberPrefix(db, col string) string {
	return db + sep + "m" + sep + col + sep
}

// documentRef names one stored document.
type documentRef struct {
	col string
	doc string
}

// catalog reads and writes documents inside one store transaction and keeps
// every document it touched parsed until flush.
type catalog struct {
	txn   store.Txn
	db    string
	docs  map[documentRef]*xmltree.Node
	dirty map[documentRef]bool
}

func newCatalog(txn store.Txn, db string) *catalog {
	return &catalog{
		txn:   txn,
		db:    db,
		docs:  make(map[documentRef]*xmltree.Node),
		dirty: make(map[documentRef]bool),
	}
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, sep) && !strings.HasPrefix(name, "$")
}

func (c *catalog) collectionExists(col string) (bool, error) {
	_, err := c.txn.Get(collectionKey(c.db, col))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *catalog) documentExists(ref documentRef) (bool, error) {
	if _, ok := c.docs[ref]; ok {
		return true, nil
	}
	_, err := c.txn.Get(docKey(c.db, ref.col, ref.doc))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// document returns the parsed document, loading it on first use.
func (c *catalog) document(ref documentRef) (*xmltree.Node, error) {
	if d, ok := c.docs[ref]; ok {
		return d, nil
	}
	if ref.col != "" {
		ok, err := c.collectionExists(ref.col)
		if err != nil {
			return nil, asEngineError(err, codeStorage)
		}
		if !ok {
			return nil, newError(codeCollectionMissing, "collection '%s'", ref.col)
		}
	}
	raw, err := c.txn.Get(docKey(c.db, ref.col, ref.doc))
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(codeDocumentNotFound, "document '%s'", ref.doc)
	}
	if err != nil {
		return nil, asEngineError(err, codeStorage)
	}
	d, err := xmltree.Unmarshal(string(raw))
	if err != nil {
		return nil, asEngineError(err, codeStorage)
	}
	c.docs[ref] = d
	return d, nil
}

func (c *catalog) createDocument(ref documentRef, d *xmltree.Node) error {
	if !validName(ref.doc) {
		return newError(codeDocumentNotFound, "invalid document name '%s'", ref.doc)
	}
	if ref.col != "" {
		ok, err := c.collectionExists(ref.col)
		if err != nil {
			return asEngineError(err, codeStorage)
		}
		if !ok {
			return newError(codeCollectionMissing, "collection '%s'", ref.col)
		}
	}
	exists, err := c.documentExists(ref)
	if err != nil {
		return asEngineError(err, codeStorage)
	}
	if exists {
		return newError(codeDocumentExists, "document '%s'", ref.doc)
	}
	c.docs[ref] = d
	c.dirty[ref] = true
	return nil
}

func (c *catalog) dropDocument(ref documentRef) error {
	if _, err := c.document(ref); err != nil {
		return err
	}
	delete(c.docs, ref)
	delete(c.dirty, ref)
	if err := c.txn.Delete(docKey(c.db, ref.col, ref.doc)); err != nil {
		return asEngineError(err, codeStorage)
	}
	return nil
}

func (c *catalog) createCollection(col string) error {
	if !validName(col) {
		return newError(codeCollectionMissing, "invalid collection name '%s'", col)
	}
	ok, err := c.collectionExists(col)
	if err != nil {
		return asEngineError(err, codeStorage)
	}
	if ok {
		return newError(codeCollectionExists, "collection '%s'", col)
	}
	if err := c.txn.Put(collectionKey(c.db, col), []byte{}); err != nil {
		return asEngineError(err, codeStorage)
	}
	return nil
}

// dropCollection removes a collection together with its documents.
func (c *catalog) dropCollection(col string) error {
	ok, err := c.collectionExists(col)
	if err != nil {
		return asEngineError(err, codeStorage)
	}
	if !ok {
		return newError(codeCollectionMissing, "collection '%s'", col)
	}
	members, err := c.members(col)
	if err != nil {
		return err
	}
	for _, name := range members {
		if err := c.dropDocument(documentRef{col: col, doc: name}); err != nil {
			return err
		}
	}
	if err := c.txn.Delete(collectionKey(c.db, col)); err != nil {
		return asEngineError(err, codeStorage)
	}
	return nil
}

// members lists the documents of a collection, including ones created in
// this statement and not yet flushed.
func (c *catalog) members(col string) ([]string, error) {
	prefix := memberPrefix(c.db, col)
	keys, err := c.txn.Keys(prefix)
	if err != nil {
		return nil, asEngineError(err, codeStorage)
	}
	seen := make(map[string]bool)
	var names []string
	for _, k := range keys {
		name := strings.TrimPrefix(k, prefix)
		seen[name] = true
		names = append(names, name)
	}
	for ref := range c.dirty {
		if ref.col == col && !seen[ref.doc] {
			names = append(names, ref.doc)
		}
	}
	sort.Strings(names)
	return names, nil
}

// collection loads every document of col in name order.
func (c *catalog) collection(col string) ([]*xmltree.Node, error) {
	ok, err := c.collectionExists(col)
	if err != nil {
		return nil, asEngineError(err, codeStorage)
	}
	if !ok {
		return nil, newError(codeCollectionMissing, "collection '%s'", col)
	}
	names, err := c.members(col)
	if err != nil {
		return nil, err
	}
	docs := make([]*xmltree.Node, 0, len(names))
	for _, name := range names {
		d, err := c.document(documentRef{col: col, doc: name})
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// standalone lists the names of documents outside any collection.
func (c *catalog) standalone() ([]string, error) {
	prefix := c.db + sep + "d" + sep
	keys, err := c.txn.Keys(prefix)
	if err != nil {
		return nil, asEngineError(err, codeStorage)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, prefix))
	}
	return names, nil
}

func (c *catalog) collections() ([]string, error) {
	prefix := c.db + sep + "c" + sep
	keys, err := c.txn.Keys(prefix)
	if err != nil {
		return nil, asEngineError(err, codeStorage)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, prefix))
	}
	return names, nil
}

// owner returns the stored document holding n. Nodes of the system
// documents and of constructed values have no owner.
func (c *catalog) owner(n *xmltree.Node) (documentRef, bool) {
	for n.Parent != nil {
		n = n.Parent
	}
	for ref, d := range c.docs {
		if d == n {
			return ref, true
		}
	}
	return documentRef{}, false
}

// markDirty records that the document holding n changed.
func (c *catalog) markDirty(n *xmltree.Node) {
	if ref, ok := c.owner(n); ok {
		c.dirty[ref] = true
	}
}

// flush writes every changed document back to the transaction.
func (c *catalog) flush() error {
	for ref := range c.dirty {
		d := c.docs[ref]
		if err := c.txn.Put(docKey(c.db, ref.col, ref.doc), []byte(xmltree.Marshal(d))); err != nil {
			return asEngineError(err, codeStorage)
		}
	}
	clear(c.dirty)
	return nil
}
