// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"text/tabwriter"
)

// Output is where a command writes its results.
type Output struct {
	Writer io.Writer

	// JSON selects machine-readable output.
	JSON bool
}

// Emit writes result as indented JSON when JSON output is selected
// and reports whether it did. Callers fall through to text formatting
// when it returns false:
//
//	if done, err := output.Emit(entries); done {
//	    return err
//	}
//
// Nil slices are written as [] rather than null.
func (o *Output) Emit(result any) (bool, error) {
	if !o.JSON {
		return false, nil
	}
	encoder := json.NewEncoder(o.Writer)
	encoder.SetIndent("", "  ")
	return true, encoder.Encode(normalizeNilSlice(result))
}

// Printf writes formatted text.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.Writer, format, args...)
}

// Table returns a tabwriter over the output. Callers must Flush it.
func (o *Output) Table() *tabwriter.Writer {
	return tabwriter.NewWriter(o.Writer, 2, 0, 2, ' ', 0)
}

// normalizeNilSlice returns an empty slice of the same type if value
// is a nil slice. Returns value unchanged for all other types.
func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
