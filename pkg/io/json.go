package io

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/poa/pkg/bundle"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

// Document is the JSON form of a PO graph and its bundles.
type Document struct {
	Name      string   `json:"name"`
	Title     string   `json:"title,omitempty"`
	Columns   int      `json:"columns"`
	Nodes     []Node   `json:"nodes"`
	Sources   []Source `json:"sources"`
	Bundles   []Bundle `json:"bundles,omitempty"`
	Premature bool     `json:"premature,omitempty"`
}

// Node is one graph node. Ring is the smallest node index on its
// alignment ring.
type Node struct {
	ID      int          `json:"id"`
	Residue string       `json:"residue"`
	Column  int          `json:"column"`
	Ring    int          `json:"ring"`
	Left    []int        `json:"left,omitempty"`
	Sources []Provenance `json:"sources"`
}

// Provenance is position Pos of sequence Seq.
type Provenance struct {
	Seq int `json:"seq"`
	Pos int `json:"pos"`
}

// Source describes one input or consensus sequence.
type Source struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Length int    `json:"length"`
	Start  int    `json:"start,omitempty"`
	Weight int    `json:"weight"`
	Bundle int    `json:"bundle"`
}

// Bundle is one heaviest-bundle group.
type Bundle struct {
	ID        int   `json:"id"`
	Consensus int   `json:"consensus"`
	Members   []int `json:"members"`
	Path      []int `json:"path"`
}

// NewDocument converts g and optional bundling results into a Document.
func NewDocument(g *po.Graph, res *bundle.Result) *Document {
	cols, ncol := g.Columns()
	doc := &Document{
		Name:    g.Name,
		Title:   g.Title,
		Columns: ncol,
		Nodes:   make([]Node, len(g.Letters)),
		Sources: make([]Source, len(g.Sources)),
	}
	for i := range g.Letters {
		l := &g.Letters[i]
		n := Node{
			ID:      i,
			Residue: string(l.Residue),
			Column:  cols[i],
			Ring:    g.RingID(i),
			Left:    l.Left,
			Sources: make([]Provenance, len(l.Sources)),
		}
		for k, s := range l.Sources {
			n.Sources[k] = Provenance{Seq: s.Seq, Pos: s.Pos}
		}
		doc.Nodes[i] = n
	}
	for k, s := range g.Sources {
		doc.Sources[k] = Source{
			Name:   s.Name,
			Title:  s.Title,
			Length: s.Length,
			Start:  s.Start,
			Weight: s.Weight,
			Bundle: s.Bundle,
		}
	}
	if res != nil {
		doc.Premature = res.Premature
		for _, b := range res.Bundles {
			doc.Bundles = append(doc.Bundles, Bundle{
				ID:        b.ID,
				Consensus: b.Consensus,
				Members:   b.Members,
				Path:      b.Path,
			})
		}
	}
	return doc
}

// Graph rebuilds the PO graph described by d.
func (d *Document) Graph() (*po.Graph, error) {
	g := po.New(d.Name, d.Title)
	for _, s := range d.Sources {
		g.AddSource(po.SourceInfo{
			Name:   s.Name,
			Title:  s.Title,
			Length: s.Length,
			Start:  s.Start,
			Weight: s.Weight,
			Bundle: s.Bundle,
		})
	}
	for i, n := range d.Nodes {
		if n.ID != i || len(n.Residue) != 1 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "json: node %d is malformed", i)
		}
		g.AddLetter(n.Residue[0])
		for _, p := range n.Left {
			if p < 0 || p >= i {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "json: node %d links to node %d", i, p)
			}
			g.Link(p, i)
		}
		for _, s := range n.Sources {
			g.Letters[i].Sources = append(g.Letters[i].Sources, po.Source{Seq: s.Seq, Pos: s.Pos})
		}
	}
	for i, n := range d.Nodes {
		if n.Ring < 0 || n.Ring >= len(d.Nodes) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "json: node %d is on missing ring %d", i, n.Ring)
		}
		g.Crosslink(n.Ring, i)
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "json: invalid graph")
	}
	return g, nil
}

// BundleResult rebuilds the bundling result recorded in d, or nil when d
// has no bundles.
func (d *Document) BundleResult() *bundle.Result {
	if len(d.Bundles) == 0 && !d.Premature {
		return nil
	}
	res := &bundle.Result{Premature: d.Premature}
	for _, b := range d.Bundles {
		res.Bundles = append(res.Bundles, bundle.Bundle{
			ID:        b.ID,
			Path:      b.Path,
			Consensus: b.Consensus,
			Members:   b.Members,
		})
	}
	return res
}

// WriteJSON encodes g and optional bundling results as indented JSON.
// The output can be read back with [ReadJSON].
func WriteJSON(g *po.Graph, res *bundle.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(g, res)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *po.Graph, res *bundle.Result, path string) error {
	return export(path, func(w io.Writer) error { return WriteJSON(g, res, w) })
}

// ReadJSON decodes a graph written by [WriteJSON]. Bundle lists are
// ignored; bundle membership survives in the source entries.
func ReadJSON(r io.Reader) (*po.Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json")
	}
	return doc.Graph()
}

// ImportJSON reads a JSON graph file. See [ReadJSON].
func ImportJSON(path string) (*po.Graph, error) {
	return load(path, ReadJSON)
}
