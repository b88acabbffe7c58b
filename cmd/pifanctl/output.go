package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sierrasoftworks/humane-errors-go"
	"gopkg.in/yaml.v3"
)

type output string

const (
	outputText output = "text"
	outputJSON output = "json"
	outputYAML output = "yaml"
)

func parseOutputFormat(format string) (output, humane.Error) {
	switch output(format) {
	case outputText, outputJSON, outputYAML:
		return output(format), nil
	default:
		return "", humane.New(fmt.Sprintf("unknown output format %q", format),
			"use one of text, json or yaml",
		)
	}
}

// render writes v as json or yaml, or calls text for the human readable form.
func render(w io.Writer, format output, v any, text func() string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, text())
		return err
	}
}
