package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kadirpekel/ccswarmd/pkg/config"
	"gopkg.in/yaml.v3"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	Format      string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return printLoadError(c.Format, c.Config, err)
	}

	if c.PrintConfig {
		return printExpandedConfig(c.Format, c.Config, cfg)
	}

	printSuccess(c.Format, c.Config)
	return nil
}

type validationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func printLoadError(format, file string, err error) error {
	switch format {
	case "json":
		printJSONResult(false, file, []validationError{{Type: "load", Message: err.Error()}})
	case "verbose":
		fmt.Fprintf(os.Stderr, "Configuration Load Error\n")
		fmt.Fprintf(os.Stderr, "========================\n\n")
		fmt.Fprintf(os.Stderr, "File:    %s\n", file)
		fmt.Fprintf(os.Stderr, "Error:   %s\n", err.Error())
	default: // compact
		fmt.Fprintf(os.Stderr, "%s: load error: %s\n", file, err.Error())
	}
	return fmt.Errorf("config load failed")
}

func printSuccess(format, file string) {
	switch format {
	case "json":
		printJSONResult(true, file, nil)
	case "verbose":
		fmt.Fprintf(os.Stdout, "Configuration Validation Successful\n")
		fmt.Fprintf(os.Stdout, "===================================\n\n")
		fmt.Fprintf(os.Stdout, "File:   %s\n", file)
		fmt.Fprintf(os.Stdout, "Status: OK Valid\n")
	default: // compact
		fmt.Fprintf(os.Stdout, "%s: valid\n", file)
	}
}

func printExpandedConfig(format, file string, cfg *config.Config) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as JSON: %w", err)
		}
	default: // verbose, compact
		fmt.Fprintf(os.Stdout, "# Expanded configuration from: %s\n", file)
		fmt.Fprintf(os.Stdout, "# (defaults applied, env vars resolved)\n\n")

		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as YAML: %w", err)
		}
		encoder.Close()
	}
	return nil
}

type validateJSONOutput struct {
	Valid  bool              `json:"valid"`
	File   string            `json:"file"`
	Errors []validationError `json:"errors,omitempty"`
}

func printJSONResult(valid bool, file string, errs []validationError) {
	output := validateJSONOutput{Valid: valid, File: file, Errors: errs}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}
