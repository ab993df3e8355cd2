package category

import (
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/models"
)

const noParent = -1

// node is an arena entry. Parent and children are indexes into Tree.nodes.
type node struct {
	category models.DocumentCategory
	parent   int
	children []int
}

// Tree is an in-memory snapshot of the category hierarchy stored as an arena
// of nodes addressed by index.
type Tree struct {
	nodes []node
	index map[uint]int
	roots []int
}

// NewTree builds a tree from a flat list of categories. Categories whose
// parent is missing from the list are treated as roots.
func NewTree(categories []models.DocumentCategory) *Tree {
	t := &Tree{
		nodes: make([]node, len(categories)),
		index: make(map[uint]int, len(categories)),
	}
	for i, c := range categories {
		t.nodes[i] = node{category: c, parent: noParent}
		t.index[c.ID] = i
	}

	for i := range t.nodes {
		pid := t.nodes[i].category.ParentID
		if pid == nil {
			t.roots = append(t.roots, i)
			continue
		}
		p, ok := t.index[*pid]
		if !ok {
			t.roots = append(t.roots, i)
			continue
		}
		t.nodes[i].parent = p
		t.nodes[p].children = append(t.nodes[p].children, i)
	}

	t.sortByName(t.roots)
	for i := range t.nodes {
		t.sortByName(t.nodes[i].children)
	}
	return t
}

func (t *Tree) sortByName(ids []int) {
	sort.SliceStable(ids, func(a, b int) bool {
		return t.nodes[ids[a]].category.Name < t.nodes[ids[b]].category.Name
	})
}

func (t *Tree) collect(ids []int) []models.DocumentCategory {
	result := make([]models.DocumentCategory, 0, len(ids))
	for _, i := range ids {
		result = append(result, t.nodes[i].category)
	}
	return result
}

// Len returns the number of categories in the tree
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns the category with the given ID
func (t *Tree) Get(id uint) (models.DocumentCategory, bool) {
	i, ok := t.index[id]
	if !ok {
		return models.DocumentCategory{}, false
	}
	return t.nodes[i].category, true
}

// Roots returns the parentless categories, by name
func (t *Tree) Roots() []models.DocumentCategory {
	return t.collect(t.roots)
}

// Children returns the direct children of id, by name
func (t *Tree) Children(id uint) []models.DocumentCategory {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.collect(t.nodes[i].children)
}

// Ancestors returns the chain from the root down to, but excluding, id
func (t *Tree) Ancestors(id uint) []models.DocumentCategory {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	var chain []int
	for p := t.nodes[i].parent; p != noParent; p = t.nodes[p].parent {
		chain = append(chain, p)
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return t.collect(chain)
}

// Descendants returns every category below id in depth-first order
func (t *Tree) Descendants(id uint) []models.DocumentCategory {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	var order []int
	t.walk(t.nodes[i].children, &order)
	return t.collect(order)
}

// Ordered returns all categories in tree order: depth first, siblings by name
func (t *Tree) Ordered() []models.DocumentCategory {
	var order []int
	t.walk(t.roots, &order)
	return t.collect(order)
}

func (t *Tree) walk(ids []int, order *[]int) {
	for _, i := range ids {
		*order = append(*order, i)
		t.walk(t.nodes[i].children, order)
	}
}

// Slugs returns the slugs from the root down to id
func (t *Tree) Slugs(id uint) []string {
	c, ok := t.Get(id)
	if !ok {
		return nil
	}
	var slugs []string
	for _, a := range t.Ancestors(id) {
		slugs = append(slugs, a.Slug)
	}
	return append(slugs, c.Slug)
}

// Path returns the slash joined slugs from the root to id
func (t *Tree) Path(id uint) string {
	return strings.Join(t.Slugs(id), "/")
}

// Label returns the slash joined names from the root to id
func (t *Tree) Label(id uint) string {
	c, ok := t.Get(id)
	if !ok {
		return ""
	}
	var names []string
	for _, a := range t.Ancestors(id) {
		names = append(names, a.Name)
	}
	return strings.Join(append(names, c.Name), "/")
}
