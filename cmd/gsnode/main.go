// Command gsnode runs a single node on an image file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/host"
	"github.com/gimelstudio/gsnodes/internal/imaging"
	"github.com/gimelstudio/gsnodes/internal/node"
	"github.com/gimelstudio/gsnodes/internal/nodes/flip"
	"github.com/gimelstudio/gsnodes/internal/plugin"
)

const instanceID = "node"

func main() {
	var (
		in        = flag.String("in", "", "input image path")
		out       = flag.String("out", "", "output image path")
		nodeType  = flag.String("node", flip.Name, "node type to run")
		direction = flag.String("direction", "", "flip direction (Horizontal or Vertical)")
		muted     = flag.Bool("muted", false, "run the muted evaluation")
		list      = flag.Bool("list", false, "list available node types and exit")
	)
	flag.Parse()

	catalog := plugin.Builtins()

	if *list {
		for _, m := range catalog.Metadata() {
			fmt.Printf("%-12s %-10s %-8s %s\n", m.Name, m.Category, m.Version, m.Description)
		}
		return
	}

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(catalog, *nodeType, *in, *out, *direction, *muted); err != nil {
		log.Fatalf("gsnode: %v", err)
	}

	for _, e := range events.Snapshot() {
		log.Printf("%s %s %v", e.Level, e.Name, e.Fields)
	}
}

func run(catalog *plugin.Registry, nodeType, in, out, direction string, muted bool) error {
	session := host.NewSession(catalog)
	inst, err := session.CreateNode(instanceID, nodeType)
	if err != nil {
		return err
	}

	if direction != "" {
		if err := session.SetProperty(instanceID, flip.KeyDirection, direction); err != nil {
			return err
		}
	}
	if err := session.SetMuted(instanceID, muted); err != nil {
		return err
	}

	inKey, outKey, err := imageKeys(inst.Node)
	if err != nil {
		return err
	}

	img, err := imaging.Load(in)
	if err != nil {
		return err
	}
	if err := session.SetInputImage(instanceID, inKey, img); err != nil {
		return err
	}
	if err := session.Evaluate(instanceID); err != nil {
		return err
	}

	result, err := session.Output(instanceID, outKey)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%s produced no image", nodeType)
	}
	return imaging.Save(out, result)
}

// imageKeys returns the first image input and the first image output of n.
func imageKeys(n node.Node) (string, string, error) {
	in, err := firstImage(n, n.InputKeys())
	if err != nil {
		return "", "", fmt.Errorf("%s has no image input", n.MetaData().Name)
	}
	out, err := firstImage(n, n.OutputKeys())
	if err != nil {
		return "", "", fmt.Errorf("%s has no image output", n.MetaData().Name)
	}
	return in, out, nil
}

func firstImage(n node.Node, keys []string) (string, error) {
	for _, key := range keys {
		if _, err := node.Lookup[*node.ImageProperty](n, key); err == nil {
			return key, nil
		}
	}
	return "", node.ErrPropertyNotFound
}
