package node

import (
	"fmt"
	"math"

	"github.com/gimelstudio/gsnodes/internal/imaging"
)

// Kind identifies a property variant.
type Kind string

const (
	KindImage   Kind = "image"
	KindChoice  Kind = "choice"
	KindInteger Kind = "integer"
	KindFile    Kind = "file"
	KindThumb   Kind = "thumb"
)

// Property is a named, typed slot on a node. The host uses the flags to
// decide whether to draw a graph socket and a property panel widget.
type Property interface {
	Kind() Kind
	Label() string
	SetLabel(label string)
	UseSocket() bool
	SetUseSocket(use bool)
	UsePropertyPanel() bool
	SetUsePropertyPanel(use bool)
	Visible() bool
	SetVisible(visible bool)

	// Get returns the current value.
	Get() interface{}
	// Set assigns a value coming from a remote editor, validating its type.
	Set(v interface{}) error
}

type propertyBase struct {
	label            string
	useSocket        bool
	usePropertyPanel bool
	visible          bool
}

func newPropertyBase() propertyBase {
	return propertyBase{useSocket: true, usePropertyPanel: true, visible: true}
}

func (p *propertyBase) Label() string                { return p.label }
func (p *propertyBase) SetLabel(label string)        { p.label = label }
func (p *propertyBase) UseSocket() bool              { return p.useSocket }
func (p *propertyBase) SetUseSocket(use bool)        { p.useSocket = use }
func (p *propertyBase) UsePropertyPanel() bool       { return p.usePropertyPanel }
func (p *propertyBase) SetUsePropertyPanel(use bool) { p.usePropertyPanel = use }
func (p *propertyBase) Visible() bool                { return p.visible }
func (p *propertyBase) SetVisible(visible bool)      { p.visible = visible }

// ImageProperty holds an image reference.
type ImageProperty struct {
	propertyBase
	value *imaging.Image
}

func NewImageProperty() *ImageProperty {
	return &ImageProperty{propertyBase: newPropertyBase()}
}

func (p *ImageProperty) Kind() Kind                  { return KindImage }
func (p *ImageProperty) Value() *imaging.Image       { return p.value }
func (p *ImageProperty) SetImage(img *imaging.Image) { p.value = img }
func (p *ImageProperty) Get() interface{}            { return p.value }

func (p *ImageProperty) Set(v interface{}) error {
	switch img := v.(type) {
	case nil:
		p.value = nil
	case *imaging.Image:
		p.value = img
	default:
		return fmt.Errorf("%w: image property expects an image, got %T", ErrInvalidValue, v)
	}
	return nil
}

// ChoiceProperty holds one label out of an enumerated set.
// Until a value is set, Value returns the default.
type ChoiceProperty struct {
	propertyBase
	choices      []string
	defaultValue string
	value        string
	set          bool
}

func NewChoiceProperty() *ChoiceProperty {
	return &ChoiceProperty{propertyBase: newPropertyBase()}
}

func (p *ChoiceProperty) Kind() Kind { return KindChoice }

// Choices returns a copy of the available labels.
func (p *ChoiceProperty) Choices() []string {
	return append([]string{}, p.choices...)
}

func (p *ChoiceProperty) SetChoices(choices []string) {
	p.choices = append([]string{}, choices...)
}

func (p *ChoiceProperty) DefaultValue() string { return p.defaultValue }

func (p *ChoiceProperty) SetDefaultValue(v string) { p.defaultValue = v }

func (p *ChoiceProperty) Value() string {
	if !p.set {
		return p.defaultValue
	}
	return p.value
}

// SetValue stores v. Labels outside Choices are kept as-is; evaluating
// nodes treat them as their fallback case.
func (p *ChoiceProperty) SetValue(v string) {
	p.value = v
	p.set = true
}

// HasChoice reports whether v is one of the declared labels.
func (p *ChoiceProperty) HasChoice(v string) bool {
	for _, c := range p.choices {
		if c == v {
			return true
		}
	}
	return false
}

func (p *ChoiceProperty) Get() interface{} { return p.Value() }

func (p *ChoiceProperty) Set(v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: choice property expects a string, got %T", ErrInvalidValue, v)
	}
	p.SetValue(s)
	return nil
}

// IntegerProperty holds an integer bounded by [Min, Max].
type IntegerProperty struct {
	propertyBase
	min    int
	max    int
	value  int
	suffix string
}

// NewIntegerProperty returns an integer property; the default must lie within the range.
func NewIntegerProperty(def, min, max int) (*IntegerProperty, error) {
	if min > max {
		return nil, fmt.Errorf("%w: min %d greater than max %d", ErrInvalidValue, min, max)
	}
	p := &IntegerProperty{propertyBase: newPropertyBase(), min: min, max: max}
	if err := p.SetValue(def); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *IntegerProperty) Kind() Kind         { return KindInteger }
func (p *IntegerProperty) Min() int           { return p.min }
func (p *IntegerProperty) Max() int           { return p.max }
func (p *IntegerProperty) Value() int         { return p.value }
func (p *IntegerProperty) Suffix() string     { return p.suffix }
func (p *IntegerProperty) SetSuffix(s string) { p.suffix = s }
func (p *IntegerProperty) Get() interface{}   { return p.value }

func (p *IntegerProperty) SetValue(v int) error {
	if v > p.max {
		return fmt.Errorf("%w: %d is greater than max %d", ErrInvalidValue, v, p.max)
	}
	if v < p.min {
		return fmt.Errorf("%w: %d is less than min %d", ErrInvalidValue, v, p.min)
	}
	p.value = v
	return nil
}

// Set accepts Go integers and whole JSON numbers.
func (p *IntegerProperty) Set(v interface{}) error {
	switch n := v.(type) {
	case int:
		return p.SetValue(n)
	case int64:
		return p.SetValue(int(n))
	case float64:
		if n != math.Trunc(n) {
			return fmt.Errorf("%w: %v is not a whole number", ErrInvalidValue, n)
		}
		return p.SetValue(int(n))
	default:
		return fmt.Errorf("%w: integer property expects a number, got %T", ErrInvalidValue, v)
	}
}

// FileProperty holds the path of an image file to open.
type FileProperty struct {
	propertyBase
	path          string
	dialogMessage string
	buttonLabel   string
}

func NewFileProperty() *FileProperty {
	return &FileProperty{
		propertyBase:  newPropertyBase(),
		dialogMessage: "Choose file...",
		buttonLabel:   "Choose...",
	}
}

func (p *FileProperty) Kind() Kind                { return KindFile }
func (p *FileProperty) Value() string             { return p.path }
func (p *FileProperty) DialogMessage() string     { return p.dialogMessage }
func (p *FileProperty) SetDialogMessage(m string) { p.dialogMessage = m }
func (p *FileProperty) ButtonLabel() string       { return p.buttonLabel }
func (p *FileProperty) SetButtonLabel(l string)   { p.buttonLabel = l }
func (p *FileProperty) Get() interface{}          { return p.path }

// SetValue stores path. An empty path clears the selection.
func (p *FileProperty) SetValue(path string) error {
	if path != "" && !imaging.IsSupportedFile(path) {
		return fmt.Errorf("%w: unsupported file type: %s", ErrInvalidValue, path)
	}
	p.path = path
	return nil
}

func (p *FileProperty) Set(v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: file property expects a string, got %T", ErrInvalidValue, v)
	}
	return p.SetValue(s)
}

// ThumbProperty shows a preview image. It is never a socket and cannot be
// edited remotely; the host updates it with SetThumbnail.
type ThumbProperty struct {
	propertyBase
	thumb *imaging.Image
}

func NewThumbProperty() *ThumbProperty {
	p := &ThumbProperty{propertyBase: newPropertyBase()}
	p.useSocket = false
	return p
}

func (p *ThumbProperty) Kind() Kind                      { return KindThumb }
func (p *ThumbProperty) Thumbnail() *imaging.Image       { return p.thumb }
func (p *ThumbProperty) SetThumbnail(img *imaging.Image) { p.thumb = img }
func (p *ThumbProperty) SetUseSocket(bool)                {}
func (p *ThumbProperty) Get() interface{}                 { return p.thumb }

func (p *ThumbProperty) Set(v interface{}) error {
	return fmt.Errorf("%w: thumbnail property is read-only", ErrInvalidValue)
}
