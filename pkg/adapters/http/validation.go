package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct checks struct tags and reports the first failure as a
// domain.ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Reason: err.Error()}
	}
	return formatFieldError(fieldErrs[0])
}

func formatFieldError(e validator.FieldError) error {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return &domain.ValidationError{Field: field, Reason: "is required"}
	case "oneof":
		return &domain.ValidationError{Field: field, Reason: fmt.Sprintf("must be one of: %s", e.Param())}
	default:
		return &domain.ValidationError{Field: field, Reason: "is invalid"}
	}
}

// flowDocument is the POST /api/flow body: a flow document plus an
// optional name for the record.
type flowDocument struct {
	Name  *string       `json:"name,omitempty"`
	Nodes []domain.Node `json:"nodes" validate:"required"`
	Edges []domain.Edge `json:"edges" validate:"required"`
}

func (d flowDocument) flow() domain.Flow {
	return domain.Flow{Nodes: d.Nodes, Edges: d.Edges}
}

// startSessionRequest selects what flow a new session runs. An inline flow
// wins over flowId; neither means the latest stored flow.
type startSessionRequest struct {
	Flow   *flowDocument `json:"flow,omitempty"`
	FlowID *int64        `json:"flowId,omitempty" validate:"omitempty,gte=1"`
}

type inputRequest struct {
	Text *string `json:"text" validate:"required"`
}
