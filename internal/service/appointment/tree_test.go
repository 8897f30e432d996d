package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medifollow/care-api/internal/model"
)

func apt(id uuid.UUID, prev *uuid.UUID, date string) *model.Appointment {
	return &model.Appointment{
		ID:                    id,
		PreviousAppointmentID: prev,
		AppointmentDate:       date,
		StartTime:             "09:00:00",
		EndTime:               "09:30:00",
	}
}

func TestBuildAppointmentTree_Chain(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	// Deliberately out of order: the forest shape must come from the
	// parent links, not input order.
	forest := BuildAppointmentTree([]*model.Appointment{
		apt(c, &b, "2026-03-03"),
		apt(a, nil, "2026-03-01"),
		apt(b, &a, "2026-03-02"),
	})

	require.Len(t, forest, 1)
	assert.Equal(t, a, forest[0].ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, b, forest[0].Children[0].ID)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, c, forest[0].Children[0].Children[0].ID)
}

func TestBuildAppointmentTree_MissingParentBecomesRoot(t *testing.T) {
	outside := uuid.New()
	orphan := uuid.New()
	root := uuid.New()

	forest := BuildAppointmentTree([]*model.Appointment{
		apt(root, nil, "2026-03-01"),
		apt(orphan, &outside, "2026-03-02"),
	})

	require.Len(t, forest, 2)
	ids := []uuid.UUID{forest[0].ID, forest[1].ID}
	assert.Contains(t, ids, root)
	assert.Contains(t, ids, orphan)
}

func TestBuildAppointmentTree_SiblingsSortedByDate(t *testing.T) {
	parent := uuid.New()
	early, late := uuid.New(), uuid.New()

	forest := BuildAppointmentTree([]*model.Appointment{
		apt(parent, nil, "2026-03-01"),
		apt(late, &parent, "2026-04-20"),
		apt(early, &parent, "2026-03-15"),
	})

	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, early, forest[0].Children[0].ID)
	assert.Equal(t, late, forest[0].Children[1].ID)
}

func TestBuildAppointmentTree_SelfReferenceBecomesRoot(t *testing.T) {
	id := uuid.New()
	self := apt(id, &id, "2026-03-01")

	forest := BuildAppointmentTree([]*model.Appointment{self})

	require.Len(t, forest, 1)
	assert.Equal(t, id, forest[0].ID)
	assert.Empty(t, forest[0].Children)
}

func TestBuildAppointmentTree_Empty(t *testing.T) {
	assert.Empty(t, BuildAppointmentTree(nil))
}

func TestBuildAppointmentTree_CycleMemberPromotedToRoot(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	// Corrupt lineage: each appointment names the other as its parent.
	forest := BuildAppointmentTree([]*model.Appointment{
		apt(a, &b, "2026-03-01"),
		apt(b, &a, "2026-03-02"),
	})

	require.Len(t, forest, 1)
	assert.Equal(t, a, forest[0].ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, b, forest[0].Children[0].ID)
	assert.Empty(t, forest[0].Children[0].Children)
}

func TestBuildAppointmentTree_CycleBesideHealthyChain(t *testing.T) {
	root, child := uuid.New(), uuid.New()
	x, y := uuid.New(), uuid.New()

	forest := BuildAppointmentTree([]*model.Appointment{
		apt(root, nil, "2026-03-01"),
		apt(child, &root, "2026-03-05"),
		apt(x, &y, "2026-03-10"),
		apt(y, &x, "2026-03-11"),
	})

	seen := map[uuid.UUID]int{}
	var walk func(nodes []*model.AppointmentNode)
	walk = func(nodes []*model.AppointmentNode) {
		for _, n := range nodes {
			seen[n.ID]++
			walk(n.Children)
		}
	}
	walk(forest)

	require.Len(t, forest, 2)
	require.Len(t, seen, 4)
	for _, id := range []uuid.UUID{root, child, x, y} {
		assert.Equal(t, 1, seen[id])
	}
}

func TestBuildAppointmentTree_EveryInputAppearsOnce(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	input := []*model.Appointment{
		apt(a, nil, "2026-03-01"),
		apt(b, &a, "2026-03-05"),
		apt(c, &a, "2026-03-06"),
		apt(d, nil, "2026-03-02"),
	}

	forest := BuildAppointmentTree(input)

	seen := map[uuid.UUID]int{}
	var walk func(nodes []*model.AppointmentNode)
	walk = func(nodes []*model.AppointmentNode) {
		for _, n := range nodes {
			seen[n.ID]++
			walk(n.Children)
		}
	}
	walk(forest)

	require.Len(t, seen, len(input))
	for _, in := range input {
		assert.Equal(t, 1, seen[in.ID])
	}
}
