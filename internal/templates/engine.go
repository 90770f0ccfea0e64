// internal/templates/engine.go
package templates

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/models"

	"github.com/google/uuid"
)

// placeholderPattern matches {variableName} placeholders in template bodies.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Engine owns the template catalog and strict rendering. A placeholder with
// no bound variable fails the render; nothing is ever passed through
// half-substituted.
type Engine struct {
	repo   Repository
	logger logger.Logger
}

func NewEngine(repo Repository, log logger.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: log.WithFields(map[string]interface{}{"component": "templates"}),
	}
}

// Placeholders extracts the distinct placeholder names appearing in body, in
// first-appearance order.
func Placeholders(body string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// Register validates and stores a new template. Every placeholder in the body
// must appear in the declared variable set.
func (e *Engine) Register(ctx context.Context, name string, category models.MessageCategory, body string, variables []string) (*models.MessageTemplate, error) {
	if strings.TrimSpace(name) == "" {
		return nil, commonerrors.NewValidationFailedError("template name is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, commonerrors.NewValidationFailedError("template body is required")
	}

	declared := make(map[string]bool, len(variables))
	for _, v := range variables {
		declared[v] = true
	}
	for _, p := range Placeholders(body) {
		if !declared[p] {
			return nil, commonerrors.NewValidationFailedError(
				fmt.Sprintf("placeholder {%s} is not in the declared variable set", p))
		}
	}

	tmpl := &models.MessageTemplate{
		ID:        uuid.New().String(),
		Name:      name,
		Category:  category,
		Body:      body,
		Variables: variables,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.repo.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	e.logger.Info("template registered", map[string]interface{}{
		"templateId": tmpl.ID,
		"name":       name,
		"category":   category,
	})
	return tmpl, nil
}

// Render substitutes every placeholder in the template body. Deterministic:
// the same template and variables always produce byte-identical output.
func Render(tmpl *models.MessageTemplate, variables map[string]string) (string, error) {
	result := tmpl.Body
	for _, p := range Placeholders(tmpl.Body) {
		value, ok := variables[p]
		if !ok {
			return "", commonerrors.NewTemplateRenderFailedError(tmpl.ID, p)
		}
		result = strings.ReplaceAll(result, "{"+p+"}", value)
	}
	return result, nil
}

// GetByName fetches a template from the catalog by its unique name.
func (e *Engine) GetByName(ctx context.Context, name string) (*models.MessageTemplate, error) {
	return e.repo.GetByName(ctx, name)
}

// Get fetches a template by id.
func (e *Engine) Get(ctx context.Context, id string) (*models.MessageTemplate, error) {
	return e.repo.Get(ctx, id)
}

// List returns catalog templates, optionally filtered by category.
func (e *Engine) List(ctx context.Context, category models.MessageCategory) ([]models.MessageTemplate, error) {
	return e.repo.List(ctx, category)
}

// RecordUsage bumps the usage counter and last-used timestamp after a
// successful render+send. Analytics only; rendering never reads these.
func (e *Engine) RecordUsage(ctx context.Context, id string) {
	if err := e.repo.IncrementUsage(ctx, id, time.Now().UTC()); err != nil {
		e.logger.Warn("usage bump failed", map[string]interface{}{
			"templateId": id,
			"error":      err.Error(),
		})
	}
}
