package httpapi

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	csvdoc "github.com/goliatone/go-csvdoc"
)

const openAPIVersion = "3.0.3"

// rowDocument describes the row form of the current document as an OpenAPI
// document. Every column is a string property; constrained columns reference
// an enum component so form renderers can offer a select.
func rowDocument(snap csvdoc.Snapshot, required []string) (map[string]any, error) {
	names := newComponentNames("Row")
	properties := make(map[string]any, len(snap.Headers))
	components := map[string]any{}
	for _, header := range snap.Headers {
		column := snap.Schema[header]
		if !column.Constrained {
			properties[header] = map[string]any{"type": "string"}
			continue
		}
		name := names.unique(header + "_options")
		options := column.Options()
		if options == nil {
			options = []string{}
		}
		// "" is always accepted: a cell may be left blank.
		components[name] = map[string]any{
			"type": "string",
			"enum": append([]string{""}, options...),
		}
		properties[header] = map[string]any{"$ref": "#/components/schemas/" + name}
	}

	row := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		row["required"] = required
	}
	components["Row"] = row

	body := func() map[string]any {
		return map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{
						"type":       "object",
						"properties": map[string]any{"values": map[string]any{"$ref": "#/components/schemas/Row"}},
					},
				},
			},
		}
	}
	document := map[string]any{
		"openapi": openAPIVersion,
		"info":    map[string]any{"title": "csvdoc rows", "version": "1.0.0"},
		"paths": map[string]any{
			"/rows": map[string]any{
				"post": map[string]any{
					"operationId": "addRow",
					"requestBody": body(),
					"responses":   map[string]any{"201": map[string]any{"description": "Created"}},
				},
			},
			"/rows/{rowID}": map[string]any{
				"patch": map[string]any{
					"operationId": "editRow",
					"requestBody": body(),
					"responses":   map[string]any{"200": map[string]any{"description": "OK"}},
				},
			},
		},
		"components": map[string]any{"schemas": components},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	document, err := rowDocument(h.engine.Snapshot(), h.engine.RequiredColumns())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, document)
}

// componentNames hands out unique, sanitised component names.
type componentNames struct {
	used map[string]struct{}
}

func newComponentNames(reserved ...string) *componentNames {
	used := make(map[string]struct{}, len(reserved))
	for _, name := range reserved {
		used[name] = struct{}{}
	}
	return &componentNames{used: used}
}

func (n *componentNames) unique(hint string) string {
	safe := sanitizeComponentName(hint)
	if safe == "" {
		safe = "Column"
	}
	candidate := safe
	for suffix := 1; ; suffix++ {
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", safe, suffix)
	}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = strings.Trim(componentNameRegexp.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func validateDocument(document map[string]any) error {
	info, _ := document["info"].(map[string]any)
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		item, _ := pathValue.(map[string]any)
		for method, operationValue := range item {
			operation, _ := operationValue.(map[string]any)
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
