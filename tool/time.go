package tool

import (
	"context"
	"fmt"
	"time"
)

// NewCurrentTimeTool returns a tool reporting the current time, optionally in
// a given IANA timezone and Go reference layout. Defaults to RFC 3339 in UTC.
func NewCurrentTimeTool(optFns ...func(o *FunctionToolOptions)) *FunctionTool {
	parameters := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone name, e.g. 'Europe/Berlin'. Defaults to UTC.",
			},
			"format": map[string]any{
				"type":        "string",
				"description": "Go time layout string. Defaults to RFC 3339.",
			},
		},
	}

	return NewFunctionTool(
		"current_time",
		"Get the current date and time",
		parameters,
		func(ctx context.Context, args map[string]any) (string, error) {
			loc := time.UTC
			if tz, ok := args["timezone"].(string); ok && tz != "" {
				parsed, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q", tz)
				}
				loc = parsed
			}

			layout := time.RFC3339
			if f, ok := args["format"].(string); ok && f != "" {
				layout = f
			}

			return time.Now().In(loc).Format(layout), nil
		},
		optFns...,
	)
}
