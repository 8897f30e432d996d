package appointment

import (
	"sort"

	"github.com/google/uuid"

	"github.com/medifollow/care-api/internal/model"
)

// BuildAppointmentTree arranges a flat list of appointments into a forest
// keyed on previous_appointment_id. An appointment whose parent is absent
// from the input set becomes a root, so a role-scoped or filtered list
// still produces a complete forest over the appointments it does contain.
// Corrupt cyclic lineage is tolerated: one member of each cycle gets
// promoted to a root, so every input appointment appears exactly once.
func BuildAppointmentTree(appointments []*model.Appointment) []*model.AppointmentNode {
	nodes := make(map[uuid.UUID]*model.AppointmentNode, len(appointments))
	for _, apt := range appointments {
		nodes[apt.ID] = &model.AppointmentNode{Appointment: *apt}
	}

	parents := make(map[uuid.UUID]*model.AppointmentNode, len(appointments))
	var roots []*model.AppointmentNode
	for _, apt := range appointments {
		node := nodes[apt.ID]
		if apt.PreviousAppointmentID != nil {
			if parent, ok := nodes[*apt.PreviousAppointmentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				parents[apt.ID] = parent
				continue
			}
		}
		roots = append(roots, node)
	}
	roots = append(roots, breakCycles(appointments, nodes, parents, roots)...)

	sortForest(roots, make(map[uuid.UUID]bool))
	return roots
}

// breakCycles promotes one node per previous_appointment_id cycle to a
// root. A cycle leaves every member attached as someone's child, so
// without the promotion none of them would reach the forest at all.
func breakCycles(
	appointments []*model.Appointment,
	nodes map[uuid.UUID]*model.AppointmentNode,
	parents map[uuid.UUID]*model.AppointmentNode,
	roots []*model.AppointmentNode,
) []*model.AppointmentNode {
	reachable := make(map[uuid.UUID]bool, len(nodes))
	for _, root := range roots {
		markReachable(root, reachable)
	}

	var promoted []*model.AppointmentNode
	for _, apt := range appointments {
		if reachable[apt.ID] {
			continue
		}
		node := nodes[apt.ID]
		if parent := parents[apt.ID]; parent != nil {
			parent.Children = detachChild(parent.Children, node)
		}
		promoted = append(promoted, node)
		markReachable(node, reachable)
	}
	return promoted
}

func markReachable(node *model.AppointmentNode, reachable map[uuid.UUID]bool) {
	if reachable[node.ID] {
		return
	}
	reachable[node.ID] = true
	for _, child := range node.Children {
		markReachable(child, reachable)
	}
}

func detachChild(children []*model.AppointmentNode, node *model.AppointmentNode) []*model.AppointmentNode {
	for i, child := range children {
		if child == node {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}

// sortForest orders siblings by date ascending at every level. The visited
// set stops the walk if corrupt data ever links appointments into a cycle.
func sortForest(nodes []*model.AppointmentNode, visited map[uuid.UUID]bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].AppointmentDate != nodes[j].AppointmentDate {
			return nodes[i].AppointmentDate < nodes[j].AppointmentDate
		}
		return nodes[i].StartTime < nodes[j].StartTime
	})
	for _, node := range nodes {
		if visited[node.ID] {
			continue
		}
		visited[node.ID] = true
		sortForest(node.Children, visited)
	}
}
