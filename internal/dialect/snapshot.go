package dialect

import (
	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
)

// ContainerSnapshot projects a graph node or relationship as a tuple
// snapshot. Reads come from the container's property cache; writes flow only
// through applied tuple operations, never through the snapshot.
type ContainerSnapshot struct {
	container graph.PropertyContainer
}

// NewContainerSnapshot wraps a node or relationship.
func NewContainerSnapshot(container graph.PropertyContainer) *ContainerSnapshot {
	return &ContainerSnapshot{container: container}
}

// Container returns the backing node or relationship.
func (s *ContainerSnapshot) Container() graph.PropertyContainer { return s.container }

func (s *ContainerSnapshot) Get(column string) any { return s.container.Property(column) }

func (s *ContainerSnapshot) Columns() []string {
	props := s.container.Properties()
	columns := make([]string, 0, len(props))
	for column := range props {
		columns = append(columns, column)
	}
	return columns
}

var _ grid.TupleSnapshot = (*ContainerSnapshot)(nil)
