package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/flowfile"
)

// ErrAmbiguousSource is returned when both a file and a stored id are given.
var ErrAmbiguousSource = errors.New("pass either a flow file or --id, not both")

// FlowSource says where a command reads its flow from. With neither field
// set the workspace's current document is used.
type FlowSource struct {
	Path string
	ID   int64
}

// ResolveFlow loads the flow named by src.
func ResolveFlow(ctx context.Context, ws *botflow.Workspace, src FlowSource) (*domain.StoredFlow, error) {
	switch {
	case src.Path != "" && src.ID != 0:
		return nil, ErrAmbiguousSource
	case src.Path != "":
		sf, err := flowfile.Load(src.Path)
		if err != nil {
			return nil, err
		}
		return &sf, nil
	case src.ID != 0:
		sf, err := ws.Store().Get(ctx, src.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %d: %w", src.ID, err)
		}
		return sf, nil
	}
	return ws.Current(ctx)
}
