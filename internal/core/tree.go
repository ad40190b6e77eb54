package core

import (
	"sort"

	"gwi.com/shop-assistant/internal/store"
)

type CategoryNode struct {
	store.Category
	Children []CategoryNode `json:"children"`
}

// BuildCategoryTree assembles the active categories in rows into a forest rooted at
// the children of root (nil for top-level categories). Every level is name ordered.
// Rows are expected to be acyclic; a node is never expanded twice, so a cycle ends
// the walk instead of recursing forever.
func BuildCategoryTree(rows []store.Category, root *uint) []CategoryNode {
	const noParent = 0 // ids start at 1

	byParent := make(map[uint][]store.Category, len(rows))
	for _, c := range rows {
		if !c.IsActive {
			continue
		}
		key := uint(noParent)
		if c.ParentID != nil {
			key = *c.ParentID
		}
		byParent[key] = append(byParent[key], c)
	}
	for _, children := range byParent {
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].Name != children[j].Name {
				return children[i].Name < children[j].Name
			}
			return children[i].ID < children[j].ID
		})
	}

	visited := make(map[uint]bool, len(rows))
	var build func(parent uint) []CategoryNode
	build = func(parent uint) []CategoryNode {
		nodes := []CategoryNode{}
		for _, c := range byParent[parent] {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			nodes = append(nodes, CategoryNode{Category: c, Children: build(c.ID)})
		}
		return nodes
	}

	start := uint(noParent)
	if root != nil {
		start = *root
		visited[start] = true
	}
	return build(start)
}
