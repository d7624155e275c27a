package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// PrintOutput writes v to stdout as YAML or, with --format json, as
// indented JSON.
func PrintOutput(c *cli.Context, v any) error {
	var (
		outputData []byte
		err        error
	)
	if strings.ToLower(c.String("format")) == "json" {
		outputData, err = json.MarshalIndent(v, "", "  ")
	} else {
		outputData, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(strings.TrimRight(string(outputData), "\n"))
	return nil
}
