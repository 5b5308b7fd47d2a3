package driver

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"fur/runtime-go/pkg/vm"
)

// ImageFormat is the program image version this runtime writes.
const ImageFormat = "v1.0.0"

// ProgramExtension is the suffix of program image files.
const ProgramExtension = ".fur.yml"

// Image is a decoded program image before assembly.
type Image struct {
	Path         string
	Format       string
	Entry        string
	Builtins     []string
	Functions    []ImageFunction
	Instructions []ImageInstruction
}

// ImageFunction names a closure entry label and its parameters.
type ImageFunction struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Parameters []string `yaml:"parameters,omitempty"`
}

// ImageInstruction is either a label declaration ({label: x} with no op) or
// an operation with exactly one populated argument.
type ImageInstruction struct {
	Op      string  `yaml:"op,omitempty"`
	Label   string  `yaml:"label,omitempty"`
	Count   *int    `yaml:"count,omitempty"`
	Integer *int32  `yaml:"integer,omitempty"`
	Text    *string `yaml:"text,omitempty"`
}

type imageDisk struct {
	Format       string             `yaml:"format"`
	Entry        string             `yaml:"entry"`
	Builtins     []string           `yaml:"builtins,omitempty"`
	Functions    []ImageFunction    `yaml:"functions,omitempty"`
	Instructions []ImageInstruction `yaml:"instructions"`
}

// LoadImage reads a program image from disk.
func LoadImage(path string) (*Image, error) {
	if path == "" {
		return nil, fmt.Errorf("image: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("image: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	image, err := DecodeImage(file)
	if err != nil {
		return nil, fmt.Errorf("image: parse %s: %w", abs, err)
	}
	image.Path = abs
	return image, nil
}

// DecodeImage parses program image YAML and checks its format version.
func DecodeImage(r io.Reader) (*Image, error) {
	var raw imageDisk
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	if err := checkFormat(raw.Format); err != nil {
		return nil, err
	}
	image := &Image{
		Format:       raw.Format,
		Entry:        strings.TrimSpace(raw.Entry),
		Builtins:     raw.Builtins,
		Functions:    raw.Functions,
		Instructions: raw.Instructions,
	}
	if image.Entry == "" {
		image.Entry = "__main__"
	}
	return image, nil
}

func checkFormat(format string) error {
	if format == "" {
		return fmt.Errorf("missing format version")
	}
	if !semver.IsValid(format) {
		return fmt.Errorf("format %q is not a semantic version", format)
	}
	if major := semver.Major(ImageFormat); semver.Major(format) != major {
		return fmt.Errorf("unsupported format %s (runtime reads %s.x)", format, major)
	}
	if semver.Compare(format, ImageFormat) > 0 {
		return fmt.Errorf("format %s is newer than supported %s", format, ImageFormat)
	}
	return nil
}

// Assemble turns the image into an executable program.
func (img *Image) Assemble() (*vm.Program, error) {
	asm := vm.NewAssembler().Builtins(img.Builtins...)
	for _, fn := range img.Functions {
		label := fn.Label
		if label == "" {
			label = fn.Name
		}
		asm.NamedFunction(label, fn.Name, fn.Parameters...)
	}
	for idx, instr := range img.Instructions {
		if instr.Op == "" {
			if instr.Label == "" || instr.Count != nil || instr.Integer != nil || instr.Text != nil {
				return nil, fmt.Errorf("instruction %d: label declarations take only a label", idx)
			}
			asm.Label(instr.Label)
			continue
		}
		op, ok := vm.ParseOpcode(instr.Op)
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown operation %q", idx, instr.Op)
		}
		if err := checkOperand(op, instr); err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", idx, instr.Op, err)
		}
		var (
			count   int
			integer int32
			text    string
		)
		if instr.Count != nil {
			count = *instr.Count
		}
		if instr.Integer != nil {
			integer = *instr.Integer
		}
		if instr.Text != nil {
			text = *instr.Text
		}
		asm.Op(instr.Op, instr.Label, count, integer, text)
	}
	program, err := asm.Build(img.Entry)
	if err != nil {
		if img.Path != "" {
			return nil, fmt.Errorf("%s: %w", img.Path, err)
		}
		return nil, err
	}
	return program, nil
}

func checkOperand(op vm.Opcode, instr ImageInstruction) error {
	populated := 0
	if instr.Label != "" {
		populated++
	}
	if instr.Count != nil {
		populated++
	}
	if instr.Integer != nil {
		populated++
	}
	if instr.Text != nil {
		populated++
	}
	var ok bool
	switch op.Operand() {
	case vm.OperandNone:
		return expectCount(populated, 0)
	case vm.OperandLabel:
		ok = instr.Label != ""
	case vm.OperandCount:
		ok = instr.Count != nil
	case vm.OperandInteger:
		ok = instr.Integer != nil
	case vm.OperandText:
		ok = instr.Text != nil
	}
	if !ok {
		return fmt.Errorf("missing %s argument", operandName(op.Operand()))
	}
	return expectCount(populated, 1)
}

func expectCount(populated, want int) error {
	if populated != want {
		return fmt.Errorf("expected %d argument(s), got %d", want, populated)
	}
	return nil
}

func operandName(kind vm.OperandKind) string {
	switch kind {
	case vm.OperandLabel:
		return "label"
	case vm.OperandCount:
		return "count"
	case vm.OperandInteger:
		return "integer"
	case vm.OperandText:
		return "text"
	default:
		return "no"
	}
}

// LoadProgram reads and assembles a program image.
func LoadProgram(path string) (*vm.Program, error) {
	image, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return image.Assemble()
}

// WriteImage serialises an image in the on-disk layout.
func WriteImage(w io.Writer, img *Image) error {
	if img == nil {
		return fmt.Errorf("image: nil image")
	}
	format := img.Format
	if format == "" {
		format = ImageFormat
	}
	data := imageDisk{
		Format:       format,
		Entry:        img.Entry,
		Builtins:     img.Builtins,
		Functions:    img.Functions,
		Instructions: img.Instructions,
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("image: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("image: encoder close: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
