package entity

import "sort"

// MenuNode is a MenuItem with its resolved children, ready for the
// navigation layout.
type MenuNode struct {
	MenuItem
	Children []*MenuNode
}

// BuildMenuTree assembles the flat menu list into a parent/child tree.
// Roots are items without a parent; items pointing at an unknown parent are
// dropped. Siblings are ordered by sequence, then id.
func BuildMenuTree(items []MenuItem) []*MenuNode {
	nodes := make(map[int]*MenuNode, len(items))
	for _, it := range items {
		nodes[it.ID] = &MenuNode{MenuItem: it}
	}

	var roots []*MenuNode
	for _, it := range items {
		node := nodes[it.ID]
		if !it.ParentID.Valid {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[int(it.ParentID.Int)]
		if !ok || parent == node {
			continue // orphan
		}
		parent.Children = append(parent.Children, node)
	}

	sortMenuNodes(roots)
	for _, node := range nodes {
		sortMenuNodes(node.Children)
	}
	return roots
}

func sortMenuNodes(nodes []*MenuNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Sequence != nodes[j].Sequence {
			return nodes[i].Sequence < nodes[j].Sequence
		}
		return nodes[i].ID < nodes[j].ID
	})
}
