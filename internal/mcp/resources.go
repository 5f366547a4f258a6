package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) ratioTable(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(map[string]any{
		"fallback_ratio": progression.DefaultRatio,
		"ratios":         h.converter.Ratios(),
	})
	if err != nil {
		return nil, err
	}
	return jsonContents(req, data), nil
}

func (h *handlers) disciplines(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(map[metrics.Family][]string{
		metrics.FamilyForce:     metrics.Disciplines(metrics.FamilyForce),
		metrics.FamilyEndurance: metrics.Disciplines(metrics.FamilyEndurance),
	})
	if err != nil {
		return nil, err
	}
	return jsonContents(req, data), nil
}

func jsonContents(req mcp.ReadResourceRequest, data []byte) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}
}
