package vm

import (
	"io"
	"strconv"
	"strings"

	"fur/runtime-go/pkg/runtime"
)

// WriteObject writes the printed form of an object. Strings are written by an
// in-order traversal of their concatenation tree.
func WriteObject(w io.Writer, obj runtime.Object) error {
	switch v := obj.(type) {
	case runtime.Boolean:
		if v {
			return writeString(w, "true")
		}
		return writeString(w, "false")
	case runtime.Integer:
		return writeString(w, strconv.FormatInt(int64(v), 10))
	case runtime.StringLiteral:
		return writeString(w, string(v))
	case *runtime.StringConcatenation:
		if err := WriteObject(w, v.Left); err != nil {
			return err
		}
		return WriteObject(w, v.Right)
	case runtime.Void:
		return writeString(w, "nil")
	case runtime.Closure:
		return writeString(w, "<Closure>")
	case runtime.Builtin:
		return writeString(w, "<Builtin "+v.Name+">")
	case *runtime.List:
		if err := writeString(w, "["); err != nil {
			return err
		}
		for i, item := range v.Items {
			if i > 0 {
				if err := writeString(w, ", "); err != nil {
					return err
				}
			}
			if err := WriteObject(w, item); err != nil {
				return err
			}
		}
		return writeString(w, "]")
	case *runtime.Structure:
		if err := writeString(w, "{"); err != nil {
			return err
		}
		for i, field := range v.Fields {
			sep := ""
			if i > 0 {
				sep = ", "
			}
			if err := writeString(w, sep+field.Name.String()+": "); err != nil {
				return err
			}
			if err := WriteObject(w, field.Value); err != nil {
				return err
			}
		}
		return writeString(w, "}")
	default:
		return writeString(w, "<"+obj.Kind().String()+">")
	}
}

// FormatObject returns the printed form of an object as a string.
func FormatObject(obj runtime.Object) string {
	var b strings.Builder
	_ = WriteObject(&b, obj)
	return b.String()
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
