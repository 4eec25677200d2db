// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodyBytes = 4 << 20

type previewExecuteRequest struct {
	Workflow  json.RawMessage `json:"workflow"`
	Input     any             `json:"input"`
	SessionID string          `json:"sessionId"`
}

type executeAppRequest struct {
	Input     any    `json:"input"`
	SessionID string `json:"sessionId"`
}

type saveConfigurationRequest struct {
	Workflow json.RawMessage `json:"workflow" validate:"required"`
	Settings map[string]any  `json:"settings"`
}

type createAppRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Slug        string `json:"slug" validate:"omitempty,max=100,slug"`
}

type componentRule struct {
	ID   string `validate:"max=200"`
	Type string `validate:"required,max=100"`
	Name string `validate:"max=200"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Struct(s any) error {
	if err := rv.v.Struct(s); err != nil {
		return describeValidation(err)
	}
	return nil
}

// Components checks stored workflow entries. Unregistered types are accepted;
// they fail per step at execution time.
func (rv *requestValidator) Components(workflow []domain.Component) error {
	for i, c := range workflow {
		if err := rv.v.Struct(componentRule{ID: c.ID, Type: string(c.Type), Name: c.Name}); err != nil {
			return fmt.Errorf("component %d: %w", i, describeValidation(err))
		}
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

// decodeJSONBody decodes exactly one JSON object and rejects unknown fields.
func decodeJSONBody(r *http.Request, dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return errors.New("request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain exactly one JSON object")
	}
	return nil
}
