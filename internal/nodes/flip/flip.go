// Package flip implements the Flip node.
package flip

import (
	"github.com/Masterminds/semver/v3"

	"github.com/gimelstudio/gsnodes/internal/imaging"
	"github.com/gimelstudio/gsnodes/internal/node"
)

// Name is the node type name used in the plugin catalog.
const Name = "Flip"

// Property keys.
const (
	KeyInputImage  = "inputImage"
	KeyDirection   = "direction"
	KeyOutputImage = "outputImage"
)

// Directions offered by the direction property.
const (
	DirectionHorizontal = "Horizontal"
	DirectionVertical   = "Vertical"
)

var version = semver.New(1, 0, 0, "", "")

// Node flips the orientation of the image.
type Node struct {
	node.Base
}

// New returns an uninitialized Flip node.
func New() node.Node {
	return &Node{}
}

func (n *Node) MetaData() node.Metadata {
	return node.Metadata{
		Name:        Name,
		Author:      "Gimel Studio",
		Version:     version,
		Category:    node.CategoryTransform,
		Description: "Flips the orientation of the image.",
	}
}

func (n *Node) InitInputProperties() error {
	inputImage := node.NewImageProperty()
	inputImage.SetLabel("Image")
	if err := n.AddInputProperty(KeyInputImage, inputImage); err != nil {
		return err
	}

	direction := node.NewChoiceProperty()
	direction.SetLabel("Direction")
	direction.SetUseSocket(false)
	direction.SetChoices([]string{DirectionHorizontal, DirectionVertical})
	direction.SetDefaultValue(DirectionVertical)
	return n.AddInputProperty(KeyDirection, direction)
}

func (n *Node) InitOutputProperties() error {
	outputImage := node.NewImageProperty()
	outputImage.SetLabel("Output")
	return n.AddOutputProperty(KeyOutputImage, outputImage)
}

// MutedEvaluation forwards the input image untouched.
func (n *Node) MutedEvaluation() error {
	inputImage, err := node.Lookup[*node.ImageProperty](n, KeyInputImage)
	if err != nil {
		return err
	}
	outputImage, err := node.Lookup[*node.ImageProperty](n, KeyOutputImage)
	if err != nil {
		return err
	}
	outputImage.SetImage(inputImage.Value())
	return nil
}

// Evaluation reads the direction and writes the output image.
// Every direction currently forwards the input unchanged.
func (n *Node) Evaluation() error {
	inputImage, err := node.Lookup[*node.ImageProperty](n, KeyInputImage)
	if err != nil {
		return err
	}
	direction, err := node.Lookup[*node.ChoiceProperty](n, KeyDirection)
	if err != nil {
		return err
	}
	outputImage, err := node.Lookup[*node.ImageProperty](n, KeyOutputImage)
	if err != nil {
		return err
	}

	var out *imaging.Image
	switch direction.Value() {
	case DirectionHorizontal:
		// TODO: mirror left-right once output buffers can be allocated by the host.
		out = inputImage.Value()
	case DirectionVertical:
		// TODO: mirror top-to-bottom once output buffers can be allocated by the host.
		out = inputImage.Value()
	default:
		out = inputImage.Value()
	}

	outputImage.SetImage(out)
	return nil
}
