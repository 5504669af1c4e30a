package main

import (
	"encoding/json"
	"reflect"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout. A nil slice
// is written as [] so consumers never see null for an empty listing.
func writeJSON(cmd *cobra.Command, v any) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		v = []struct{}{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
